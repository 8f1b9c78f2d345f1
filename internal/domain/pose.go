package domain

import "fmt"

const (
	// DefaultPoseCount は、ポーズ画像が指定されない場合の生成枚数です
	DefaultPoseCount = 5

	// MaxPoseReferences は、指定できるポーズ画像の上限です
	MaxPoseReferences = 5
)

// Pose は、1回の生成で使用するポーズです
// Image が nil の場合はテキストのポーズ名として扱います
type Pose struct {
	Label string
	Image *MediaReference
}

// TextPose は、ポーズ名によるPoseを作成します
func TextPose(label string) Pose {
	return Pose{Label: label}
}

// ImagePose は、ポーズ画像によるPoseを作成します
func ImagePose(ref MediaReference) Pose {
	r := ref
	return Pose{Image: &r}
}

// IsTextual は、ポーズがテキストで指定されているかどうかを返します
func (p Pose) IsTextual() bool {
	return p.Image == nil
}

// ResultLabel は、生成結果に表示するポーズ名を返します
// 画像ポーズの場合は「<eliteLook> N」形式のラベルを返します
func (p Pose) ResultLabel(index int, eliteLook string) string {
	if p.IsTextual() {
		return p.Label
	}
	return fmt.Sprintf("%s %d", eliteLook, index+1)
}

// PlanPoses は、ポーズ画像があればそれを、なければデフォルトのポーズ名を使用して生成計画を作成します
func PlanPoses(poseRefs []MediaReference, defaults []string) []Pose {
	if len(poseRefs) > 0 {
		poses := make([]Pose, len(poseRefs))
		for i, ref := range poseRefs {
			poses[i] = ImagePose(ref)
		}
		return poses
	}

	count := DefaultPoseCount
	if len(defaults) < count {
		count = len(defaults)
	}
	poses := make([]Pose, count)
	for i := 0; i < count; i++ {
		poses[i] = TextPose(defaults[i])
	}
	return poses
}
