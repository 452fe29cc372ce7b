package feedstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// indexKeyPrefix namespaces every record IndexDB writes into the
// injected Trie: "@feedstore/<hex(key)>".
const indexKeyPrefix = "@feedstore/"

func indexKey(key []byte) string {
	return indexKeyPrefix + hexKey(key)
}

// recordEnvelope is the on-trie wire shape of a DescriptorRecord.
// Metadata is carried pre-encoded so nested []byte values survive the
// round trip via the byte-tagging scheme in codec.go.
type recordEnvelope struct {
	Path          string          `json:"path"`
	Key           []byte          `json:"key"`
	SecretKey     []byte          `json:"secretKey,omitempty"`
	ValueEncoding string          `json:"valueEncoding"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

func encodeRecord(rec DescriptorRecord) ([]byte, error) {
	metaBytes, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("feedstore: encode record metadata: %w", err)
	}
	env := recordEnvelope{
		Path:          rec.Path,
		Key:           rec.Key,
		SecretKey:     rec.SecretKey,
		ValueEncoding: rec.ValueEncoding,
		Metadata:      metaBytes,
	}
	return json.Marshal(env)
}

func decodeRecord(data []byte) (DescriptorRecord, error) {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return DescriptorRecord{}, fmt.Errorf("feedstore: decode record: %w", err)
	}
	var meta any
	if len(env.Metadata) > 0 {
		var err error
		meta, err = decodeMetadata(env.Metadata)
		if err != nil {
			return DescriptorRecord{}, err
		}
	}
	return DescriptorRecord{
		Path:          env.Path,
		Key:           env.Key,
		SecretKey:     env.SecretKey,
		ValueEncoding: env.ValueEncoding,
		Metadata:      meta,
	}, nil
}

// IndexDB is a thin adapter over the injected Trie that persists
// DescriptorRecords keyed by public key, eliding writes that would not
// change the stored bytes.
type IndexDB struct {
	trie Trie
}

// NewIndexDB wraps trie.
func NewIndexDB(trie Trie) *IndexDB {
	return &IndexDB{trie: trie}
}

// Ready waits for the underlying trie to become usable.
func (idx *IndexDB) Ready(ctx context.Context) error {
	return idx.trie.Ready(ctx)
}

// List decodes every record under the feedstore namespace. Order is
// unspecified.
func (idx *IndexDB) List(ctx context.Context) ([]DescriptorRecord, error) {
	entries, err := idx.trie.List(ctx, indexKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("feedstore: list index: %w", err)
	}
	records := make([]DescriptorRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := decodeRecord(e.Value)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns the record for key, if present.
func (idx *IndexDB) Get(ctx context.Context, key []byte) (*DescriptorRecord, bool, error) {
	data, ok, err := idx.trie.Get(ctx, indexKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("feedstore: get index record: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// Put persists rec, skipping the write if the serialized bytes are
// unchanged from what is already stored, to avoid rewriting on every
// open.
func (idx *IndexDB) Put(ctx context.Context, rec DescriptorRecord) error {
	newData, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	k := indexKey(rec.Key)
	if existing, ok, err := idx.trie.Get(ctx, k); err == nil && ok && bytes.Equal(existing, newData) {
		return nil
	}

	if err := idx.trie.Put(ctx, k, newData); err != nil {
		return fmt.Errorf("feedstore: put index record: %w", err)
	}
	return nil
}

// Delete removes the record for key, if present.
func (idx *IndexDB) Delete(ctx context.Context, key []byte) error {
	if err := idx.trie.Delete(ctx, indexKey(key)); err != nil {
		return fmt.Errorf("feedstore: delete index record: %w", err)
	}
	return nil
}

// Close releases the underlying trie.
func (idx *IndexDB) Close(ctx context.Context) error {
	return idx.trie.Close(ctx)
}
