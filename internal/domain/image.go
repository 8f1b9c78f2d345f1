package domain

// SynthesizedImage は、リモート呼び出しから返された画像データです
type SynthesizedImage struct {
	Data     []byte
	MimeType string
}

// MediaReference は、生成画像をMediaReferenceに変換します
func (s SynthesizedImage) MediaReference() (MediaReference, error) {
	return NewMediaReferenceFromBytes(s.Data, s.MimeType)
}

// GenerationResult は、1ポーズ分の生成成功結果です
type GenerationResult struct {
	ID        string `json:"id"`
	ImageURL  string `json:"imageUrl"`
	Pose      string `json:"pose"`
	PoseIndex int    `json:"poseIndex"`
}

// PoseFailure は、1ポーズ分の生成失敗を表します
type PoseFailure struct {
	PoseIndex int    `json:"poseIndex"`
	Pose      string `json:"pose"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// BatchReport は、生成バッチ全体の結果です
type BatchReport struct {
	Results          []GenerationResult `json:"results"`
	Failures         []PoseFailure      `json:"failures"`
	Total            int                `json:"total"`
	Attempted        int                `json:"attempted"`
	Aborted          bool               `json:"aborted"`
	CredentialPrompt bool               `json:"credentialPrompt"`
}
