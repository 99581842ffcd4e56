// Package stat probes paths without failing on missing or unreadable ones.
package stat

import (
	"bytes"
	"os"
	"time"

	"rewatch/internal/hash"
)

// Stat is the observed state of one path. A Stat with Exists == false is the
// Absent sentinel; Err then carries the reason when one is known.
type Stat struct {
	Exists      bool
	Size        int64
	ModTime     time.Time
	IsDir       bool
	Fingerprint []byte
	Err         error
}

// Absent returns the sentinel for a path that could not be observed.
func Absent(reason error) Stat {
	return Stat{Err: reason}
}

// Probe stats path. With validate set, regular files are also fingerprinted
// with sum, or with streaming xxHash when sum is nil. A file that cannot be
// read is reported Absent.
func Probe(path string, validate bool, sum hash.Func) Stat {
	info, err := os.Stat(path)
	if err != nil {
		return Absent(err)
	}

	st := Stat{
		Exists:  true,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}

	if validate && info.Mode().IsRegular() {
		fp, err := hash.File(path, sum)
		if err != nil {
			return Absent(err)
		}
		st.Fingerprint = fp
	}

	return st
}

// Clone returns a copy that shares no memory with st.
func (st Stat) Clone() Stat {
	if st.Fingerprint != nil {
		st.Fingerprint = bytes.Clone(st.Fingerprint)
	}
	return st
}

// SameContent reports whether two present stats describe the same content:
// size and fingerprint when validating, size and mtime otherwise.
func SameContent(a, b Stat, validate bool) bool {
	if a.Size != b.Size {
		return false
	}
	if validate {
		return bytes.Equal(a.Fingerprint, b.Fingerprint)
	}
	return a.ModTime.Equal(b.ModTime)
}
