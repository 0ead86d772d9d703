//go:build !unix

package iofile

import "os"

// populatePlatformTimes is a no-op outside unix: CreatedAt/AccessedAt stay
// at their zero value on platforms without a Stat_t to read them from.
func populatePlatformTimes(info *Info, fi os.FileInfo) {}
