//go:build unix

package permit

import "golang.org/x/sys/unix"

// osProber asks the kernel via access(2). Listing a directory needs read
// and search permission; creating files in it needs write and search.
type osProber struct{}

func (osProber) Capable() bool { return true }

func (osProber) Access(path string, mode Mode) error {
	bits := uint32(unix.R_OK | unix.X_OK)
	if mode == ReadWrite {
		bits |= unix.W_OK
	}
	return unix.Access(path, bits)
}

func platformProber() Prober { return osProber{} }
