package state

import (
	"encoding/binary"
	"fmt"

	mt "github.com/txaty/go-merkletree"

	"rewatch/internal/hash"
	"rewatch/internal/watcher"
)

// entryBlock is one snapshot entry as a merkle leaf.
type entryBlock struct {
	key   string
	entry watcher.Entry
}

func (b *entryBlock) Serialize() ([]byte, error) {
	st := b.entry.Stat

	buf := make([]byte, 0, len(b.key)+len(st.Fingerprint)+24)
	buf = append(buf, b.key...)
	buf = append(buf, 0)
	buf = append(buf, byte(b.entry.Kind))
	if st.Exists {
		buf = binary.BigEndian.AppendUint64(buf, uint64(st.Size))
		buf = binary.BigEndian.AppendUint64(buf, uint64(st.ModTime.UnixNano()))
		buf = append(buf, st.Fingerprint...)
	}
	return buf, nil
}

// Digest computes a merkle root over the snapshot entries in key order, so
// two snapshots with the same digest recorded the same state.
func Digest(snap watcher.Snapshot) ([]byte, error) {
	keys := snap.Keys()

	switch len(keys) {
	case 0:
		return hash.XXHashFunc([]byte("empty-snapshot"))
	case 1:
		data, err := (&entryBlock{key: keys[0], entry: snap[keys[0]]}).Serialize()
		if err != nil {
			return nil, err
		}
		return hash.XXHashFunc(data)
	}

	blocks := make([]mt.DataBlock, 0, len(keys))
	for _, key := range keys {
		blocks = append(blocks, &entryBlock{key: key, entry: snap[key]})
	}

	tree, err := mt.New(&mt.Config{
		HashFunc: hash.XXHashFunc,
		Mode:     mt.ModeTreeBuild,
	}, blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot digest: %w", err)
	}
	return tree.Root, nil
}
