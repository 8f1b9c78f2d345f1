package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vstyler/internal/domain"

	"google.golang.org/genai"
)

// credentialMarkers は、APIキーの問題を示すエラーメッセージの断片です
var credentialMarkers = []string{
	"API key not valid",
	"API_KEY_INVALID",
	"PERMISSION_DENIED",
	"entity was not found",
	"API key expired",
}

// classifyError は、SDKのエラーを domain.ErrCredentialInvalid か domain.ErrRemoteCallFailed に分類します
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrCredentialInvalid) || errors.Is(err, domain.ErrRemoteCallFailed) {
		return err
	}

	if isCredentialError(err) {
		return fmt.Errorf("%w: %v", domain.ErrCredentialInvalid, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: Gemini APIへのリクエストがタイムアウトしました: %v", domain.ErrRemoteCallFailed, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrRemoteCallFailed, err)
}

// isCredentialError は、認証エラーかどうかを判定します
func isCredentialError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isCredentialAPIError(apiErr) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isCredentialAPIError(*apiErrPtr) {
		return true
	}

	msg := err.Error()
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isCredentialAPIError(apiErr genai.APIError) bool {
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	if apiErr.Status == "PERMISSION_DENIED" || apiErr.Status == "UNAUTHENTICATED" {
		return true
	}
	for _, marker := range credentialMarkers {
		if strings.Contains(apiErr.Message, marker) {
			return true
		}
	}
	return false
}

// extractImage は、レスポンスから最初のインライン画像を取り出します
// 画像を含まない応答（テキストのみ、セーフティブロック）は失敗として扱います
func extractImage(resp *genai.GenerateContentResponse) (*domain.SynthesizedImage, error) {
	candidate, err := firstCandidate(resp)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = domain.DetectImageMimeType(part.InlineData.Data)
			}
			return &domain.SynthesizedImage{
				Data:     part.InlineData.Data,
				MimeType: mimeType,
			}, nil
		}
		text.WriteString(part.Text)
	}

	if text.Len() > 0 {
		return nil, fmt.Errorf("%w: モデルが画像を生成しませんでした: %s", domain.ErrRemoteCallFailed, truncate(text.String(), 200))
	}
	return nil, fmt.Errorf("%w: モデルが画像を生成しませんでした (FinishReason=%s)", domain.ErrRemoteCallFailed, candidate.FinishReason)
}

// extractText は、レスポンスのテキストを連結して返します
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	candidate, err := firstCandidate(resp)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: 応答にテキストが含まれていません", domain.ErrRemoteCallFailed)
	}
	return text.String(), nil
}

func firstCandidate(resp *genai.GenerateContentResponse) (*genai.Candidate, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: レスポンスが空です", domain.ErrRemoteCallFailed)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: 安全フィルターにより生成がブロックされました (%s)", domain.ErrRemoteCallFailed, resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: 安全フィルターにより生成がブロックされました", domain.ErrRemoteCallFailed)
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		if candidate != nil && candidate.FinishReason == genai.FinishReasonSafety {
			return nil, fmt.Errorf("%w: 安全フィルターにより生成がブロックされました", domain.ErrRemoteCallFailed)
		}
		return nil, fmt.Errorf("%w: 応答にコンテンツが含まれていません", domain.ErrRemoteCallFailed)
	}
	return candidate, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
