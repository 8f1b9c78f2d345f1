package domain

import (
	"fmt"
	"strings"
)

const (
	// NeutralStudioBackground は、雰囲気が選択されていない場合の背景指示です
	NeutralStudioBackground = "Professional studio lighting, clean neutral luxury background"

	// DNAPromptLimit は、指示文に埋め込むDNA記述子の最大文字数です
	DNAPromptLimit = 200
)

// RequestPart は、リモート呼び出しに送るパートです。Text か Media のどちらか一方を持ちます
type RequestPart struct {
	Text  string
	Media *MediaReference
}

// IsMedia は、パートが画像かどうかを返します
func (p RequestPart) IsMedia() bool {
	return p.Media != nil
}

func textPart(text string) RequestPart {
	return RequestPart{Text: text}
}

func mediaPart(ref MediaReference) RequestPart {
	r := ref.Stripped()
	return RequestPart{Media: &r}
}

// IdentityRequest は、キャラクターDNA解析の呼び出し内容です
type IdentityRequest struct {
	Parts []RequestPart
}

// SynthesisRequest は、1ポーズ分の画像合成の呼び出し内容です
// 出力サイズは指示文に埋め込まず、構造化パラメータとして渡します
type SynthesisRequest struct {
	Parts       []RequestPart
	AspectRatio AspectRatio
	ImageSize   ImageSize
}

// MediaCount は、リクエストに含まれる画像の枚数を返します
func (r SynthesisRequest) MediaCount() int {
	n := 0
	for _, p := range r.Parts {
		if p.IsMedia() {
			n++
		}
	}
	return n
}

// Directive は、最後のテキストパート（タスク指示文）を返します
func (r SynthesisRequest) Directive() string {
	for i := len(r.Parts) - 1; i >= 0; i-- {
		if !r.Parts[i].IsMedia() {
			return r.Parts[i].Text
		}
	}
	return ""
}

// SynthesisInput は、1ポーズ分の合成に必要な入力です
type SynthesisInput struct {
	CharacterReferences []MediaReference
	Garment             *MediaReference
	Accessory           *MediaReference
	Background          *MediaReference
	Pose                Pose
	DNA                 string
	AtmospherePrompt    string
	Mode                ProcessingMode
	AspectRatio         AspectRatio
	ImageSize           ImageSize
}

// PromptComposer は、リモート呼び出し用の指示ペイロードを組み立てるビジネスロジックを担当します
// 副作用を持たず、同じ入力に対して常に同じリクエストを返します
type PromptComposer struct {
	fallbackBackground string
}

// NewPromptComposer は新しいPromptComposerインスタンスを作成します
func NewPromptComposer(fallbackBackground string) *PromptComposer {
	if strings.TrimSpace(fallbackBackground) == "" {
		fallbackBackground = NeutralStudioBackground
	}

	return &PromptComposer{
		fallbackBackground: fallbackBackground,
	}
}

// ComposeIdentity は、参照画像からDNAを解析するためのリクエストを組み立てます
func (pc *PromptComposer) ComposeIdentity(refs []MediaReference) (IdentityRequest, error) {
	if len(refs) == 0 {
		return IdentityRequest{}, fmt.Errorf("%w: キャラクター画像がありません", ErrValidation)
	}

	parts := []RequestPart{
		textPart("### ROLE: BIOMETRIC_CONSISTENCY_ENGINE"),
		textPart("Task: Analyze the subject and generate a detailed DNA profile. " +
			"Focus on immutable facial geometry, bone structure, and specific skin undertones. " +
			"Ignore transient attributes such as expression, makeup, and lighting."),
	}
	for _, ref := range refs {
		parts = append(parts, mediaPart(ref))
	}

	return IdentityRequest{Parts: parts}, nil
}

// ComposeSynthesis は、1ポーズ分の合成リクエストを組み立てます
// パートの順序は、人物・衣装・アクセサリー・ポーズ画像・背景画像・指示文で固定です
func (pc *PromptComposer) ComposeSynthesis(in SynthesisInput) (SynthesisRequest, error) {
	if len(in.CharacterReferences) == 0 {
		return SynthesisRequest{}, fmt.Errorf("%w: キャラクター画像がありません", ErrValidation)
	}
	if in.Garment == nil {
		return SynthesisRequest{}, fmt.Errorf("%w: 衣装画像が選択されていません", ErrValidation)
	}

	parts := make([]RequestPart, 0, 11)

	parts = append(parts,
		textPart("### SOURCE_A (IDENTITY): The target person who will wear the clothes."),
		mediaPart(in.CharacterReferences[0]),
		textPart("### SOURCE_B (MASTER_GARMENT): The exact clothing to be transferred. This is the ONLY source for fabric, color, pattern, and design."),
		mediaPart(*in.Garment),
	)

	if in.Accessory != nil {
		parts = append(parts,
			textPart("### SOURCE_C (ACCESSORY): Add this item to the final result."),
			mediaPart(*in.Accessory),
		)
	}

	if !in.Pose.IsTextual() {
		parts = append(parts,
			textPart("### SOURCE_D (POSE_GUIDE): Follow this skeletal structure."),
			mediaPart(*in.Pose.Image),
		)
	}

	if in.Background != nil {
		parts = append(parts,
			textPart("### SOURCE_E (BACKGROUND): Use this image as the exact background/environment."),
			mediaPart(*in.Background),
		)
	}

	var directive string
	if in.Mode == ModeHighExposure {
		directive = pc.highExposureDirective(in)
	} else {
		directive = pc.standardDirective(in)
	}
	parts = append(parts, textPart(directive))

	return SynthesisRequest{
		Parts:       parts,
		AspectRatio: in.AspectRatio,
		ImageSize:   in.ImageSize,
	}, nil
}

func (pc *PromptComposer) backgroundPrompt(in SynthesisInput) string {
	if prompt := strings.TrimSpace(in.AtmospherePrompt); prompt != "" {
		return prompt
	}
	return pc.fallbackBackground
}

func (pc *PromptComposer) highExposureDirective(in SynthesisInput) string {
	pose := "Mirror the pose from SOURCE_D"
	if in.Pose.IsTextual() {
		pose = in.Pose.Label
	}

	background := fmt.Sprintf("BACKGROUND/ENVIRONMENT: %s. Ensure the lighting on the subject matches this environment perfectly.", pc.backgroundPrompt(in))
	if in.Background != nil {
		background = "BACKGROUND: Composite the subject seamlessly into SOURCE_E. Match the lighting, shadows, and perspective of SOURCE_E exactly."
	}

	var b strings.Builder
	b.WriteString("[TASK: HIGH-FIDELITY GARMENT TRANSFER]\n")
	fmt.Fprintf(&b, "1. SUBJECT: Render the person from SOURCE_A with absolute facial and body consistency. DNA: %s.\n", TruncateDNA(in.DNA, DNAPromptLimit))
	b.WriteString("2. CLOTHING: Extract the EXACT garment from SOURCE_B. Preserve the precise texture, weaving pattern, logos, and color shade. Do not simplify or alter the design.\n")
	b.WriteString("3. FIT: Drape the SOURCE_B clothing onto the SOURCE_A body perfectly. The clothing must look like it was worn by SOURCE_A in the photo.\n")
	fmt.Fprintf(&b, "4. POSE: %s.\n", pose)
	fmt.Fprintf(&b, "5. %s\n", background)
	b.WriteString("6. QUALITY: 8k resolution, realistic fabric folds, and shadow interaction between fabric and skin.\n")
	b.WriteString("7. RESTRICTION: IGNORE the person in SOURCE_B. Use ONLY the person from SOURCE_A.")
	return b.String()
}

func (pc *PromptComposer) standardDirective(in SynthesisInput) string {
	pose := "Follow SOURCE_D"
	if in.Pose.IsTextual() {
		pose = in.Pose.Label
	}

	environment := pc.backgroundPrompt(in)
	if in.Background != nil {
		environment = "Use SOURCE_E as background"
	}

	var b strings.Builder
	b.WriteString("[TASK: COMMERCIAL VIRTUAL TRY-ON]\n")
	b.WriteString("1. MANDATORY: The output person must be the person from SOURCE_A.\n")
	b.WriteString("2. MANDATORY: The output clothing must be an IDENTICAL copy of the clothing in SOURCE_B (pattern, color, fabric).\n")
	fmt.Fprintf(&b, "3. ENVIRONMENT: %s.\n", environment)
	fmt.Fprintf(&b, "4. POSE: %s.\n", pose)
	b.WriteString("5. STYLE: Sharp, high-contrast catalog photography.")
	return b.String()
}

// TruncateDNA は、DNA記述子の先頭 limit 文字（ルーン単位）を返します
func TruncateDNA(dna string, limit int) string {
	dna = strings.TrimSpace(dna)
	if limit <= 0 {
		return ""
	}
	runes := []rune(dna)
	if len(runes) <= limit {
		return dna
	}
	return string(runes[:limit])
}
