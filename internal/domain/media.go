package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMimeType は、MIMEタイプが不明な参照画像に適用するデフォルト値です
const DefaultMimeType = "image/jpeg"

// MediaReference は、アップロードされた画像を表現する値オブジェクトです
// URL は表示用の一時ハンドルであり、永続化されません
type MediaReference struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

// NewMediaReference は、Base64文字列とMIMEタイプからMediaReferenceを作成します
// MIMEタイプが空の場合はデータから推定し、画像と判定できなければ image/jpeg を使用します
func NewMediaReference(base64Data, mimeType string) (MediaReference, error) {
	payload := strings.TrimSpace(base64Data)
	if payload == "" {
		return MediaReference{}, fmt.Errorf("%w: 画像データが空です", ErrInvalidMedia)
	}

	// data URL 形式 (data:image/png;base64,...) も受け付ける
	if strings.HasPrefix(payload, "data:") {
		header, data, found := strings.Cut(payload, ",")
		if !found {
			return MediaReference{}, fmt.Errorf("%w: data URLの形式が不正です", ErrInvalidMedia)
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return MediaReference{}, fmt.Errorf("%w: Base64のデコードに失敗: %v", ErrInvalidMedia, err)
	}
	if len(raw) == 0 {
		return MediaReference{}, fmt.Errorf("%w: 画像データが空です", ErrInvalidMedia)
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = DetectImageMimeType(raw)
	}

	return MediaReference{
		Base64:   payload,
		MimeType: mimeType,
	}, nil
}

// NewMediaReferenceFromBytes は、バイト列からMediaReferenceを作成します
func NewMediaReferenceFromBytes(data []byte, mimeType string) (MediaReference, error) {
	if len(data) == 0 {
		return MediaReference{}, fmt.Errorf("%w: 画像データが空です", ErrInvalidMedia)
	}
	if mimeType == "" {
		mimeType = DetectImageMimeType(data)
	}
	return MediaReference{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}, nil
}

// DetectImageMimeType は、データから画像のMIMEタイプを推定します
func DetectImageMimeType(data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return DefaultMimeType
}

// Bytes は、Base64をデコードしたバイト列を返します
func (m MediaReference) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMedia, err)
	}
	return raw, nil
}

// EffectiveMimeType は、空の場合にデフォルト値を補ったMIMEタイプを返します
func (m MediaReference) EffectiveMimeType() string {
	if m.MimeType == "" {
		return DefaultMimeType
	}
	return m.MimeType
}

// Stripped は、表示用ハンドルを取り除いたコピーを返します
func (m MediaReference) Stripped() MediaReference {
	return MediaReference{Base64: m.Base64, MimeType: m.MimeType}
}

// SameContent は、2つの参照が同一のペイロードを持つかどうかを判定します
func (m MediaReference) SameContent(other MediaReference) bool {
	if m.EffectiveMimeType() != other.EffectiveMimeType() {
		return false
	}
	a, errA := m.Bytes()
	b, errB := other.Bytes()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// stripReferences は、表示用ハンドルを取り除いた参照のコピーを返します
func stripReferences(refs []MediaReference) []MediaReference {
	out := make([]MediaReference, len(refs))
	for i, ref := range refs {
		out[i] = ref.Stripped()
	}
	return out
}
