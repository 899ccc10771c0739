package llm

import (
	"context"
	"errors"
	"net/http"

	genai "google.golang.org/genai"
)

// GenStatus classifies the outcome of one generation call.
type GenStatus string

const (
	StatusOK          GenStatus = "ok"
	StatusBlocked     GenStatus = "blocked"
	StatusUnreadable  GenStatus = "unreadable"
	StatusRateLimited GenStatus = "rate_limited"
	StatusAPIError    GenStatus = "api_error"
	StatusUnexpected  GenStatus = "unexpected"
)

// GenResult is the classified outcome of a generation call. Answer is
// set only when Status is StatusOK.
type GenResult struct {
	Answer      string
	Status      GenStatus
	BlockReason string
	Err         error
}

// Generate runs the generative model once on the assembled prompt. No
// retry loop: query-time failures surface immediately as typed
// statuses, and only the caller decides whether a retry makes sense.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) GenResult {
	resp, err := g.cli.Models.GenerateContent(ctx, g.generativeModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return classifyGenerateErr(err)
	}

	if reason, blocked := blockReason(resp); blocked {
		return GenResult{Status: StatusBlocked, BlockReason: reason}
	}
	if len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].Text == "" {
		return GenResult{Status: StatusUnreadable}
	}
	return GenResult{Status: StatusOK, Answer: resp.Candidates[0].Content.Parts[0].Text}
}

func classifyGenerateErr(err error) GenResult {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return GenResult{Status: StatusRateLimited, Err: err}
		}
		return GenResult{Status: StatusAPIError, Err: err}
	}
	return GenResult{Status: StatusUnexpected, Err: err}
}

// blockReason inspects prompt feedback and candidate finish reasons for
// a safety block, degrading to "unknown" when the provider reports the
// block without naming a reason.
func blockReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if pf := resp.PromptFeedback; pf != nil {
		if pf.BlockReason != genai.BlockedReasonUnspecified && pf.BlockReason != "" {
			return string(pf.BlockReason), true
		}
		if pf.BlockReasonMessage != "" {
			return "unknown", true
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return string(genai.FinishReasonSafety), true
	}
	return "", false
}
