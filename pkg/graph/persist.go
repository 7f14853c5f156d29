package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tbrennan/chronicle/pkg/types"
)

func timeFromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

var (
	bucketNodes = []byte("nodes")
	bucketEdges = []byte("edges")
)

// edgeRecord is the on-disk shape of an edge; A/B are derived from the
// bbolt key so they are not duplicated in the value.
type edgeRecord struct {
	Weight   int   `json:"weight"`
	LastSeen int64 `json:"last_seen"`
}

const edgeKeySep = "\x00"

func edgeKey(a, b string) []byte {
	if a > b {
		a, b = b, a
	}
	return []byte(a + edgeKeySep + b)
}

// Save persists the graph to a bbolt file at path, overwriting any prior
// snapshot. The file format is bbolt's own paged B+tree, matching the
// spec's call for a small, explicit on-disk format without inventing a
// second bespoke encoding on top of it.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open graph file: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNodes); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		if err := tx.DeleteBucket(bucketEdges); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		nodesBucket, err := tx.CreateBucket(bucketNodes)
		if err != nil {
			return err
		}
		edgesBucket, err := tx.CreateBucket(bucketEdges)
		if err != nil {
			return err
		}

		for id, n := range g.nodes {
			data, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := nodesBucket.Put([]byte(id), data); err != nil {
				return err
			}
		}

		written := make(map[string]bool)
		for a, neighbors := range g.adjacency {
			for b, es := range neighbors {
				key := string(edgeKey(a, b))
				if written[key] {
					continue
				}
				written[key] = true
				data, err := json.Marshal(edgeRecord{Weight: es.weight, LastSeen: es.lastSeen.UnixNano()})
				if err != nil {
					return err
				}
				if err := edgesBucket.Put([]byte(key), data); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Load replaces the graph's contents with whatever is persisted at path.
// A missing file is not an error: it means no graph has been saved yet,
// matching the original daemon's "load existing graph if available"
// startup behavior.
func (g *Graph) Load(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open graph file: %w", err)
	}
	defer db.Close()

	nodes := make(map[string]*types.GraphNode)
	adjacency := make(map[string]map[string]*edgeState)

	err = db.View(func(tx *bolt.Tx) error {
		nodesBucket := tx.Bucket(bucketNodes)
		if nodesBucket != nil {
			if err := nodesBucket.ForEach(func(k, v []byte) error {
				var n types.GraphNode
				if err := json.Unmarshal(v, &n); err != nil {
					return err
				}
				nodes[string(k)] = &n
				return nil
			}); err != nil {
				return err
			}
		}

		edgesBucket := tx.Bucket(bucketEdges)
		if edgesBucket != nil {
			if err := edgesBucket.ForEach(func(k, v []byte) error {
				parts := strings.SplitN(string(k), edgeKeySep, 2)
				if len(parts) != 2 {
					return nil
				}
				var rec edgeRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				a, b := parts[0], parts[1]
				es := &edgeState{weight: rec.Weight, lastSeen: timeFromUnixNano(rec.LastSeen)}
				if adjacency[a] == nil {
					adjacency[a] = make(map[string]*edgeState)
				}
				if adjacency[b] == nil {
					adjacency[b] = make(map[string]*edgeState)
				}
				adjacency[a][b] = es
				adjacency[b][a] = es
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.nodes = nodes
	g.adjacency = adjacency
	g.mu.Unlock()
	return nil
}
