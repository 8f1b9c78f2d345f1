package domain

// IdentityState は、セッションのキャラクター識別状態です
// 未保存（UnsavedIdentity）か読み込み済み（LoadedIdentity）のどちらか一方のみを取ります
type IdentityState interface {
	// CharacterReferences は、生成に使用するキャラクター参照画像を返します
	CharacterReferences() []MediaReference
	// Descriptor は、生成に使用するDNA記述子を返します
	Descriptor() string

	isIdentityState()
}

// UnsavedIdentity は、保存前の自由編集中の識別状態です
type UnsavedIdentity struct {
	References []MediaReference
	DNA        string
}

// LoadedIdentity は、保存済みプロフィールを読み込んだ識別状態です
// Profile.References にはセッション用に再発行した表示ハンドルが設定されます
type LoadedIdentity struct {
	Profile CharacterProfile
}

func (UnsavedIdentity) isIdentityState() {}
func (LoadedIdentity) isIdentityState()  {}

// CharacterReferences は、参照画像を返します
func (u UnsavedIdentity) CharacterReferences() []MediaReference { return u.References }

// Descriptor は、解析済みのDNAを返します
func (u UnsavedIdentity) Descriptor() string { return u.DNA }

// CharacterReferences は、プロフィールの参照画像を返します
func (l LoadedIdentity) CharacterReferences() []MediaReference { return l.Profile.References }

// Descriptor は、プロフィールのDNAをそのまま返します
func (l LoadedIdentity) Descriptor() string { return l.Profile.DNA }

// ActiveProfileID は、読み込み済みプロフィールのIDを返します
func ActiveProfileID(state IdentityState) (string, bool) {
	if loaded, ok := state.(LoadedIdentity); ok {
		return loaded.Profile.ID, true
	}
	return "", false
}
