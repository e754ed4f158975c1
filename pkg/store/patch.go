package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/elves/elvx/pkg/tbl"
)

const bucketPatches = "patches"

func init() {
	initDB["initialize patch table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPatches))
		return err
	}
}

// Patch is an entry in the patch log of an output.
type Patch struct {
	tbl.CellPatch
	Seq int
}

// AddPatches appends patches to the log of an output and returns the sequence
// number of the last one.
func (s *Store) AddPatches(output string, patches []tbl.CellPatch) (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(bucketPatches)).CreateBucketIfNotExists([]byte(output))
		if err != nil {
			return err
		}
		for _, p := range patches {
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			seq, err = b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(marshalSeq(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
	logger.Printf("added %d patches to %s", len(patches), output)
	return int(seq), err
}

// Patches returns the patches of an output, in the order they were added.
func (s *Store) Patches(output string) ([]tbl.CellPatch, error) {
	entries, err := s.PatchesWithSeq(output, 0, -1)
	if err != nil {
		return nil, err
	}
	patches := make([]tbl.CellPatch, len(entries))
	for i, e := range entries {
		patches[i] = e.CellPatch
	}
	return patches, nil
}

// PatchesWithSeq returns the patches of an output with sequence numbers in
// [from, upto). A negative upto means no upper bound.
func (s *Store) PatchesWithSeq(output string, from, upto int) ([]Patch, error) {
	var raw [][]byte
	var seqs []int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPatches)).Bucket([]byte(output))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(marshalSeq(uint64(from))); k != nil; k, v = c.Next() {
			seq := int(unmarshalSeq(k))
			if upto >= 0 && seq >= upto {
				break
			}
			raw = append(raw, append([]byte(nil), v...))
			seqs = append(seqs, seq)
		}
		return nil
	})
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	decoded, err := tbl.ParsePatches(
		append(append([]byte("["), bytes.Join(raw, []byte(","))...), ']'))
	if err != nil {
		return nil, err
	}
	patches := make([]Patch, len(decoded))
	for i, p := range decoded {
		patches[i] = Patch{p, seqs[i]}
	}
	return patches, nil
}

// DelPatch deletes the patch with the given sequence number.
func (s *Store) DelPatch(output string, seq int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPatches)).Bucket([]byte(output))
		if b == nil || b.Get(marshalSeq(uint64(seq))) == nil {
			return ErrNoMatchingPatch
		}
		return b.Delete(marshalSeq(uint64(seq)))
	})
}

// ClearPatches deletes all patches of an output.
func (s *Store) ClearPatches(output string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(bucketPatches)).DeleteBucket([]byte(output))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// Outputs returns the IDs of all outputs that have patches.
func (s *Store) Outputs() ([]string, error) {
	var outputs []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPatches)).ForEach(func(k, v []byte) error {
			if v == nil {
				outputs = append(outputs, string(k))
			}
			return nil
		})
	})
	return outputs, err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
