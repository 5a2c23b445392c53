//go:build !unix

package permit

// nullProber marks platforms without an access query; the gate treats
// every mode as implicitly granted and lets the operation itself fail.
type nullProber struct{}

func (nullProber) Capable() bool             { return false }
func (nullProber) Access(string, Mode) error { return nil }

func platformProber() Prober { return nullProber{} }
