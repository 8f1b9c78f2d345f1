package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxCharacterReferences は、1人のキャラクターに設定できる参照画像の上限です
	MaxCharacterReferences = 4

	// ProfileIDPrefix は、プロフィールIDの接頭辞です
	ProfileIDPrefix = "brand-"
)

// CharacterProfile は、保存されたキャラクターの識別情報を表します
// 保存後は不変であり、編集は新しいプロフィールの作成として扱います
type CharacterProfile struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	DNA        string           `json:"dna"`
	References []MediaReference `json:"references"`
	Timestamp  int64            `json:"timestamp"`
}

// NewCharacterProfile は、検証済みの新しいCharacterProfileを作成します
func NewCharacterProfile(name, dna string, refs []MediaReference, now time.Time) (CharacterProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CharacterProfile{}, fmt.Errorf("%w: プロフィール名が空です", ErrValidation)
	}
	if strings.TrimSpace(dna) == "" {
		return CharacterProfile{}, fmt.Errorf("%w: DNAが解析されていません", ErrValidation)
	}
	if len(refs) == 0 {
		return CharacterProfile{}, fmt.Errorf("%w: キャラクター画像がありません", ErrValidation)
	}
	if len(refs) > MaxCharacterReferences {
		return CharacterProfile{}, fmt.Errorf("%w: キャラクター画像は最大%d枚です", ErrReferenceLimit, MaxCharacterReferences)
	}

	owned := make([]MediaReference, len(refs))
	copy(owned, refs)

	return CharacterProfile{
		ID:         ProfileIDAt(now),
		Name:       name,
		DNA:        dna,
		References: owned,
		Timestamp:  now.UnixMilli(),
	}, nil
}

// ProfileIDAt は、指定時刻から導出したプロフィールIDを返します
func ProfileIDAt(t time.Time) string {
	return fmt.Sprintf("%s%d", ProfileIDPrefix, t.UnixMilli())
}

// Stripped は、表示用ハンドルを取り除いたコピーを返します
func (p CharacterProfile) Stripped() CharacterProfile {
	out := p
	out.References = stripReferences(p.References)
	return out
}

// CreatedAt は、作成時刻を返します
func (p CharacterProfile) CreatedAt() time.Time {
	return time.UnixMilli(p.Timestamp)
}
