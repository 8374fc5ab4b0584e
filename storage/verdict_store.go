package storage

import (
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/dexverify/common"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// VerdictVersion changes whenever pre-analysis rules change, so cached
// verdicts from older rules are ignored.
const VerdictVersion = 1

var verdictPrefix = []byte("vfy/")

// Verdict is the cached pre-analysis outcome of one code item.
type Verdict struct {
	Version      int    `json:"version"`
	Accepted     bool   `json:"accepted"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	Insns        int    `json:"insns"`
	NewInstances int    `json:"new_instances"`
}

// VerdictStore wraps LevelDB for verdicts keyed by the blake2b hash of the
// code item bytes. LevelDB handles its own synchronization, so a store may
// be shared by concurrent verifications.
type VerdictStore struct {
	db *leveldb.DB
}

// NewVerdictStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewVerdictStore(path string) (*VerdictStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open verdict store at %s: %w", path, err)
	}
	return &VerdictStore{db: db}, nil
}

func verdictKey(h common.Hash) []byte {
	return append(append([]byte{}, verdictPrefix...), h.Bytes()...)
}

// Get returns (nil, false, nil) if no verdict from the current version is
// stored for h.
func (vs *VerdictStore) Get(h common.Hash) (*Verdict, bool, error) {
	data, err := vs.db.Get(verdictKey(h), nil)
	if err == leveldb.ErrNotFound {
		log.Trace(log.CacheMonitoring, "verdict miss", "hash", common.Str(h))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get %s: %w", h, err)
	}
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decode verdict %s: %w", h, err)
	}
	if v.Version != VerdictVersion {
		log.Debug(log.CacheMonitoring, "stale verdict", "hash", common.Str(h), "version", v.Version)
		return nil, false, nil
	}
	log.Trace(log.CacheMonitoring, "verdict hit", "hash", common.Str(h), "accepted", v.Accepted)
	return &v, true, nil
}

// Put stores v under h, stamping the current version.
func (vs *VerdictStore) Put(h common.Hash, v Verdict) error {
	v.Version = VerdictVersion
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verdict %s: %w", h, err)
	}
	if err := vs.db.Put(verdictKey(h), data, nil); err != nil {
		return fmt.Errorf("Put %s: %w", h, err)
	}
	return nil
}

func (vs *VerdictStore) Delete(h common.Hash) error {
	return vs.db.Delete(verdictKey(h), nil)
}

// Count returns the number of stored verdicts, stale ones included.
func (vs *VerdictStore) Count() (int, error) {
	iter := vs.db.NewIterator(util.BytesPrefix(verdictPrefix), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (vs *VerdictStore) Close() error {
	return vs.db.Close()
}
