package llm

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/spherical/catalog-extractor/internal/domain"
)

// systemInstruction fixes the response contract. The caller's prompt only
// decides which fields to look for.
const systemInstruction = `You are an expert at extracting data from documents.
Analyze the provided images, which are the pages of a single document, in order.
ALWAYS reply with exactly one JSON object and nothing else.
The JSON object must contain a single key, "records", whose value is a list of objects.
Each object in the list is one bibliographic record extracted from the pages.
Never include text, explanations or comments outside the JSON object.`

// buildRequest assembles the chat completion parameters for one document
func (c *Client) buildRequest(prompt string, pages []domain.RenderedPage) openai.ChatCompletionNewParams {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(pages)+1)
	parts = append(parts, openai.TextContentPart(prompt))
	for _, page := range pages {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: page.DataURI(),
		}))
	}

	return openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(parts),
		},
		MaxTokens: openai.Int(int64(c.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
}
