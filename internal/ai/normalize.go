package ai

import "encoding/json"

// normalizeProviders accepts the three list shapes backends are known to
// return: a bare array, {"items": [...]}, or {"data": [...]}.
func normalizeProviders(raw json.RawMessage) []Provider {
	if len(raw) == 0 {
		return nil
	}

	var providers []Provider
	if err := json.Unmarshal(raw, &providers); err == nil {
		return providers
	}

	var wrapped struct {
		Items []Provider `json:"items"`
		Data  []Provider `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil
	}
	if wrapped.Items != nil {
		return wrapped.Items
	}
	return wrapped.Data
}

// ExtractRAGContext flattens the query response's result chunks into plain
// text. Chunks arrive as bare strings, as objects with a "text" field, or as
// objects whose "content" is a list of text-bearing items.
func ExtractRAGContext(resp *RAGQueryResponse) []string {
	if resp == nil {
		return nil
	}
	raw := resp.Content
	if isEmptyJSON(raw) {
		raw = resp.Results
	}
	var chunks []json.RawMessage
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil
	}

	var texts []string
	for _, chunk := range chunks {
		var plain string
		if err := json.Unmarshal(chunk, &plain); err == nil {
			texts = append(texts, plain)
			continue
		}

		var obj struct {
			Text    string `json:"text"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(chunk, &obj); err != nil {
			continue
		}
		if obj.Text != "" {
			texts = append(texts, obj.Text)
			continue
		}
		for _, item := range obj.Content {
			if item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
	}
	return texts
}

// ExtractAnswer pulls the assistant text out of a completion response,
// accepting both the native completion_message field and the OpenAI-style
// choices array. When neither is present the raw body is the answer.
func ExtractAnswer(raw json.RawMessage) string {
	var parsed struct {
		CompletionMessage *struct {
			Content string `json:"content"`
		} `json:"completion_message"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.CompletionMessage != nil && parsed.CompletionMessage.Content != "" {
			return parsed.CompletionMessage.Content
		}
		if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
			return parsed.Choices[0].Message.Content
		}
	}
	return string(raw)
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := string(raw)
	return trimmed == "" || trimmed == "null"
}
