package llm

import (
	"encoding/json"
	"fmt"
)

// Provider reply variants, in match order. Each variant pairs a
// predicate over the decoded top-level fields with an adapter into the
// canonical Response. Adding a provider means adding a variant, not
// another conditional in the client.
var variants = []variant{
	{name: "flat", matches: hasField("response"), adapt: adaptFlat},
	{name: "chat", matches: hasField("choices"), adapt: adaptChat},
	{name: "canonical", matches: hasField("content"), adapt: adaptCanonical},
}

type variant struct {
	name    string
	matches func(fields map[string]json.RawMessage) bool
	adapt   func(raw []byte) (Response, error)
}

func hasField(key string) func(map[string]json.RawMessage) bool {
	return func(fields map[string]json.RawMessage) bool {
		_, ok := fields[key]
		return ok
	}
}

// Normalize converts a provider reply into the canonical Response.
// Idempotent: a reply that is already canonical passes through
// unchanged. Non-JSON bodies and unrecognized shapes fail with
// ErrModelUnavailable.
func Normalize(raw []byte) (Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Response{}, fmt.Errorf("%w: reply is not a JSON object: %v", ErrModelUnavailable, err)
	}

	for _, v := range variants {
		if v.matches(fields) {
			resp, err := v.adapt(raw)
			if err != nil {
				return Response{}, fmt.Errorf("%w: decoding %s reply: %v", ErrModelUnavailable, v.name, err)
			}
			return resp, nil
		}
	}

	return Response{}, fmt.Errorf("%w: unrecognized reply shape", ErrModelUnavailable)
}

// adaptFlat handles the Ollama-native shape: {"response": "...", "done": true, ...}.
func adaptFlat(raw []byte) (Response, error) {
	var flat struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return Response{}, err
	}
	return Response{Content: flat.Response}, nil
}

// adaptChat handles the OpenAI chat shape: {"choices":[{"message":{"content":"..."}}]}.
func adaptChat(raw []byte) (Response, error) {
	var chat struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &chat); err != nil {
		return Response{}, err
	}
	if len(chat.Choices) == 0 {
		return Response{}, fmt.Errorf("reply has no choices")
	}
	return Response{Content: chat.Choices[0].Message.Content}, nil
}

// adaptCanonical passes an already-normalized {"content": "..."} through.
func adaptCanonical(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
