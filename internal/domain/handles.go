package domain

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MediaHandlePrefix は、表示用ハンドルのパス接頭辞です
const MediaHandlePrefix = "/media/"

type handleEntry struct {
	data     []byte
	mimeType string
}

// HandleRegistry は、メモリ上の画像データに紐づく一時的な表示用ハンドルを管理します
// ハンドルはプロセス再起動で失われるため、ストアから読み込んだ参照には再発行が必要です
type HandleRegistry struct {
	mu      sync.RWMutex
	entries map[string]handleEntry
}

// NewHandleRegistry は新しいHandleRegistryインスタンスを作成します
func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{
		entries: make(map[string]handleEntry),
	}
}

// Register は、参照画像に新しいハンドルを発行し、URLを設定したコピーを返します
func (r *HandleRegistry) Register(ref MediaReference) (MediaReference, error) {
	data, err := ref.Bytes()
	if err != nil {
		return MediaReference{}, err
	}

	handle := MediaHandlePrefix + uuid.NewString()

	r.mu.Lock()
	r.entries[handle] = handleEntry{data: data, mimeType: ref.EffectiveMimeType()}
	r.mu.Unlock()

	out := ref.Stripped()
	out.URL = handle
	return out, nil
}

// RegisterAll は、複数の参照画像にハンドルを発行します
// 途中で失敗した場合は、それまでに発行したハンドルを解放します
func (r *HandleRegistry) RegisterAll(refs []MediaReference) ([]MediaReference, error) {
	out := make([]MediaReference, 0, len(refs))
	for _, ref := range refs {
		registered, err := r.Register(ref)
		if err != nil {
			r.ReleaseAll(out)
			return nil, err
		}
		out = append(out, registered)
	}
	return out, nil
}

// Resolve は、ハンドルに紐づく画像データとMIMEタイプを返します
func (r *HandleRegistry) Resolve(handle string) ([]byte, string, bool) {
	if !strings.HasPrefix(handle, MediaHandlePrefix) {
		handle = MediaHandlePrefix + handle
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[handle]
	if !ok {
		return nil, "", false
	}
	return entry.data, entry.mimeType, true
}

// Release は、ハンドルを解放します。未登録のハンドルは無視されます
func (r *HandleRegistry) Release(handles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, handle := range handles {
		delete(r.entries, handle)
	}
}

// ReleaseAll は、参照画像に設定されたハンドルをすべて解放します
func (r *HandleRegistry) ReleaseAll(refs []MediaReference) {
	handles := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.URL != "" {
			handles = append(handles, ref.URL)
		}
	}
	r.Release(handles...)
}

// Len は、現在保持しているハンドル数を返します
func (r *HandleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
