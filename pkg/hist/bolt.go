package hist

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

const bucketHist = "history"

// boltStore keeps history in a bolt database, one record per sequence
// number.
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) a bolt-backed history store.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketHist))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltStore{db}, nil
}

func (s *boltStore) Add(text string) (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketHist))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(text))
	})
	return int(seq), err
}

func (s *boltStore) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketHist))
		return b.ForEach(func(k, v []byte) error {
			records = append(records, Record{
				Seq:  int(unmarshalSeq(k)),
				Text: string(v),
			})
			return nil
		})
	})
	return records, err
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func marshalSeq(seq uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, seq)
	return bs
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
