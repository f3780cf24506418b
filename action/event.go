package action

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Event models the payload a Bedrock agent sends to an action group Lambda.
// Only the fields this runtime acts on are typed; unknown fields are ignored
// so agent runtime additions never break decoding.
type Event struct {
	MessageVersion          string            `json:"messageVersion"`
	ActionGroup             string            `json:"actionGroup"`
	APIPath                 string            `json:"apiPath"`
	HTTPMethod              string            `json:"httpMethod"`
	Parameters              []Parameter       `json:"parameters"`
	RequestBody             *RequestBody      `json:"requestBody"`
	QueryStringParameters   map[string]string `json:"queryStringParameters"`
	SessionID               string            `json:"sessionId"`
	InputText               string            `json:"inputText"`
	SessionAttributes       map[string]string `json:"sessionAttributes"`
	PromptSessionAttributes map[string]string `json:"promptSessionAttributes"`
	Agent                   *Agent            `json:"agent"`
}

// Agent identifies the calling agent.
type Agent struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	Version string `json:"version"`
}

// Parameter is a single named value. The agent runtime sends the same shape
// in the top-level parameters array and inside request body properties. A
// nil Value means the element carried no value at all, which extraction
// treats differently from an empty one.
type Parameter struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value *Scalar `json:"value"`
}

// NewParameter constructs a parameter with a present value. Mostly useful in
// tests and examples.
func NewParameter(name, value string) Parameter {
	v := Scalar(value)
	return Parameter{Name: name, Value: &v}
}

// RequestBody wraps parameters keyed by content type.
type RequestBody struct {
	Content map[string]Content `json:"content"`
}

// Content holds the parameters of one content type.
type Content struct {
	Properties []Parameter `json:"properties"`
}

// Scalar is a parameter value decoded tolerantly: agents are inconsistent
// about quoting and may send the same field as a JSON string, number or
// boolean between turns. Whatever arrives is kept as its string form.
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("unmarshal string scalar: %w", err)
		}

		*s = Scalar(str)
		return nil
	}

	// numbers and booleans keep their literal form.
	*s = Scalar(data)
	return nil
}

// MarshalJSON implements json.Marshaler. Values always re-encode as strings
// regardless of how they arrived.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s Scalar) String() string { return string(s) }

// ParseEvent decodes raw invocation bytes into an [Event].
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal agent event: %w", err)
	}

	return ev, nil
}
