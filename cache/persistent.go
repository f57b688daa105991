// Package cache persists resolved lyrics in a bbolt file fronted by an
// in-memory map.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "lyrics"

var ErrKeyNotFound = errors.New("cache key not found")

// PersistentCache wraps bbolt with an in-memory copy of every entry.
// Values are stored compressed when compression is enabled and are
// decompressed on read.
type PersistentCache struct {
	mu                 sync.RWMutex // guards db and backup against Close
	db                 *bolt.DB
	memCache           sync.Map // key -> Entry
	dbPath             string
	backupPath         string
	compressionEnabled bool
}

// Entry is the on-disk record for one key
type Entry struct {
	Value    string `json:"value"`
	CachedAt int64  `json:"cachedAt"`
}

// EntryInfo describes an entry without decoding its value
type EntryInfo struct {
	Key       string    `json:"key"`
	SizeBytes int       `json:"sizeBytes"`
	CachedAt  time.Time `json:"cachedAt"`
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPersistentCache opens (or creates) the cache file at dbPath
func NewPersistentCache(dbPath, backupPath string, compressionEnabled bool) (*PersistentCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if backupPath == "" {
		backupPath = filepath.Join(filepath.Dir(dbPath), "backups")
	}
	if err := os.MkdirAll(backupPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing database at %s (%d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new database at %s", logcolors.LogCacheInit, dbPath)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	pc := &PersistentCache{
		db:                 db,
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
	}

	count, err := pc.loadToMemory()
	if err != nil {
		log.Warnf("%s Failed to preload entries: %v", logcolors.LogCache, err)
	}

	log.Infof("%s Ready with %d entries (compression: %v)", logcolors.LogCacheInit, count, compressionEnabled)
	return pc, nil
}

func (pc *PersistentCache) loadToMemory() (int, error) {
	count := 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			pc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	return count, err
}

func (pc *PersistentCache) decode(key string, entry Entry) (string, bool) {
	if !pc.compressionEnabled {
		return entry.Value, true
	}
	value, err := utils.DecompressString(entry.Value)
	if err != nil {
		log.Errorf("%s Error decompressing value for key %s: %v", logcolors.LogCache, key, err)
		return "", false
	}
	return value, true
}

// Get returns the value for key, checking memory before disk
func (pc *PersistentCache) Get(key string) (string, bool) {
	if v, ok := pc.memCache.Load(key); ok {
		return pc.decode(key, v.(Entry))
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.db == nil {
		return "", false
	}

	var entry Entry
	err := pc.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return ErrKeyNotFound
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false
	}

	pc.memCache.Store(key, entry)
	return pc.decode(key, entry)
}

// Set stores value under key in memory and on disk
func (pc *PersistentCache) Set(key, value string) error {
	stored := value
	if pc.compressionEnabled {
		var err error
		if stored, err = utils.CompressString(value); err != nil {
			return fmt.Errorf("compress %s: %w", key, err)
		}
	}

	entry := Entry{Value: stored, CachedAt: time.Now().Unix()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.db == nil {
		return bolt.ErrDatabaseNotOpen
	}

	pc.memCache.Store(key, entry)
	return pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

// Delete removes key; deleting a missing key is not an error
func (pc *PersistentCache) Delete(key string) error {
	pc.memCache.Delete(key)

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear removes every entry
func (pc *PersistentCache) Clear() error {
	pc.memCache.Range(func(key, _ interface{}) bool {
		pc.memCache.Delete(key)
		return true
	})

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Entries lists entries whose key starts with prefix, sorted by key
func (pc *PersistentCache) Entries(prefix string) []EntryInfo {
	var out []EntryInfo
	pc.memCache.Range(func(k, v interface{}) bool {
		key := k.(string)
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		entry := v.(Entry)
		out = append(out, EntryInfo{
			Key:       key,
			SizeBytes: len(entry.Value),
			CachedAt:  time.Unix(entry.CachedAt, 0).UTC(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats returns the entry count and approximate stored size in KB
func (pc *PersistentCache) Stats() (numKeys int, sizeInKB int) {
	pc.memCache.Range(func(k, v interface{}) bool {
		numKeys++
		sizeInKB += len(k.(string)) + len(v.(Entry).Value)
		return true
	})
	sizeInKB /= 1024
	return
}

// Backup writes a consistent snapshot of the database into the backup
// directory and returns its path. Reads and writes continue meanwhile.
func (pc *PersistentCache) Backup() (string, error) {
	name := fmt.Sprintf("lyrics_cache_%s.db", time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(pc.backupPath, name)

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}

	err := pc.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0o600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created: %s", logcolors.LogCacheBackup, path)
	return path, nil
}

// BackupAndClear snapshots the cache and then empties it
func (pc *PersistentCache) BackupAndClear() (string, error) {
	path, err := pc.Backup()
	if err != nil {
		return "", err
	}
	if err := pc.Clear(); err != nil {
		return path, fmt.Errorf("backup created but failed to clear cache: %w", err)
	}
	log.Infof("%s Cache cleared (backup: %s)", logcolors.LogCacheClear, path)
	return path, nil
}

// ListBackups returns the backup files, newest first
func (pc *PersistentCache) ListBackups() ([]BackupInfo, error) {
	dirEntries, err := os.ReadDir(pc.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			log.Warnf("%s Failed to stat %s: %v", logcolors.LogCacheBackups, e.Name(), err)
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  e.Name(),
			FilePath:  filepath.Join(pc.backupPath, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// Close closes the database; later writes fail and reads see memory only
func (pc *PersistentCache) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.db == nil {
		return nil
	}
	err := pc.db.Close()
	pc.db = nil
	return err
}
