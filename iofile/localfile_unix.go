//go:build unix

package iofile

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// populatePlatformTimes fills in the stat fields Go's os.FileInfo doesn't
// expose directly. Linux has no portable birth-time field, so CreatedAt is
// approximated from ctime (inode change time), the closest stand-in
// unix.Stat_t offers.
func populatePlatformTimes(info *Info, fi os.FileInfo) {
	st, ok := fi.Sys().(*unix.Stat_t)
	if !ok {
		return
	}
	info.AccessedAt = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	info.CreatedAt = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
}
