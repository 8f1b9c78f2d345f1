package domain

import "fmt"

// ProcessingMode は、プロンプト戦略を切り替える処理モードです
type ProcessingMode string

const (
	ModeStandard     ProcessingMode = "standard"
	ModeHighExposure ProcessingMode = "high_exposure"
)

// AspectRatio は、出力画像のアスペクト比です
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio16x9 AspectRatio = "16:9"
)

// ImageSize は、出力画像の解像度ティアです
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// Language は、ポーズ名やステータス表示に使用する言語です
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

// optionData は各列挙値の表示データを保持します
type optionData struct {
	Value       string
	DisplayName string
}

var processingModes = []optionData{
	{string(ModeStandard), "Standard"},
	{string(ModeHighExposure), "Couture Pro"},
}

var aspectRatios = []optionData{
	{string(AspectRatio1x1), "Square"},
	{string(AspectRatio3x4), "Portrait"},
	{string(AspectRatio4x3), "Landscape"},
	{string(AspectRatio9x16), "Story"},
	{string(AspectRatio16x9), "Wide"},
}

var imageSizes = []optionData{
	{string(ImageSize1K), "1K"},
	{string(ImageSize2K), "2K"},
	{string(ImageSize4K), "4K"},
}

var languages = []optionData{
	{string(LanguageVietnamese), "Tiếng Việt"},
	{string(LanguageEnglish), "English"},
}

// DefaultProcessingMode などは、セッション開始時の初期値です
const (
	DefaultProcessingMode = ModeStandard
	DefaultAspectRatio    = AspectRatio3x4
	DefaultImageSize      = ImageSize1K
	DefaultLanguage       = LanguageVietnamese
)

func lookupOption(table []optionData, value string) (optionData, bool) {
	for _, opt := range table {
		if opt.Value == value {
			return opt, true
		}
	}
	return optionData{}, false
}

// ParseProcessingMode は、文字列をProcessingModeに変換します
func ParseProcessingMode(value string) (ProcessingMode, error) {
	if _, ok := lookupOption(processingModes, value); !ok {
		return "", fmt.Errorf("%w: 無効な処理モードです: %s", ErrValidation, value)
	}
	return ProcessingMode(value), nil
}

// ParseAspectRatio は、文字列をAspectRatioに変換します
func ParseAspectRatio(value string) (AspectRatio, error) {
	if _, ok := lookupOption(aspectRatios, value); !ok {
		return "", fmt.Errorf("%w: 無効なアスペクト比です: %s", ErrValidation, value)
	}
	return AspectRatio(value), nil
}

// ParseImageSize は、文字列をImageSizeに変換します
func ParseImageSize(value string) (ImageSize, error) {
	if _, ok := lookupOption(imageSizes, value); !ok {
		return "", fmt.Errorf("%w: 無効な画像サイズです: %s", ErrValidation, value)
	}
	return ImageSize(value), nil
}

// ParseLanguage は、文字列をLanguageに変換します
func ParseLanguage(value string) (Language, error) {
	if _, ok := lookupOption(languages, value); !ok {
		return "", fmt.Errorf("%w: 未対応の言語です: %s", ErrValidation, value)
	}
	return Language(value), nil
}

// DisplayName はProcessingModeの表示名を返します
func (m ProcessingMode) DisplayName() string {
	if opt, ok := lookupOption(processingModes, string(m)); ok {
		return opt.DisplayName
	}
	return processingModes[0].DisplayName
}

// AllProcessingModes はすべてのProcessingModeを返します
func AllProcessingModes() []ProcessingMode {
	return []ProcessingMode{ModeStandard, ModeHighExposure}
}

// AllAspectRatios はすべてのAspectRatioを返します
func AllAspectRatios() []AspectRatio {
	result := make([]AspectRatio, len(aspectRatios))
	for i, opt := range aspectRatios {
		result[i] = AspectRatio(opt.Value)
	}
	return result
}

// AllImageSizes はすべてのImageSizeを返します
func AllImageSizes() []ImageSize {
	result := make([]ImageSize, len(imageSizes))
	for i, opt := range imageSizes {
		result[i] = ImageSize(opt.Value)
	}
	return result
}

// AllLanguages はすべてのLanguageを返します
func AllLanguages() []Language {
	return []Language{LanguageVietnamese, LanguageEnglish}
}
