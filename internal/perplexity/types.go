// Package perplexity is a minimal client for the Perplexity chat completions API.
package perplexity

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of POST /chat/completions.
type Request struct {
	Model                  string    `json:"model"`
	Messages               []Message `json:"messages"`
	SearchDomainFilter     []string  `json:"search_domain_filter,omitempty"`
	SearchRecencyFilter    string    `json:"search_recency_filter,omitempty"`
	MaxTokens              int       `json:"max_tokens,omitempty"`
	Temperature            float64   `json:"temperature"`
	TopP                   float64   `json:"top_p"`
	TopK                   int       `json:"top_k"`
	PresencePenalty        float64   `json:"presence_penalty"`
	FrequencyPenalty       float64   `json:"frequency_penalty"`
	ReturnCitations        bool      `json:"return_citations"`
	ReturnImages           bool      `json:"return_images"`
	ReturnRelatedQuestions bool      `json:"return_related_questions"`
	Stream                 bool      `json:"stream"`
}

// NewRequest returns a request with the API defaults this tool relies on.
// Temperature is pinned to 0 so repeated questions get stable answers.
func NewRequest(model string, messages ...Message) Request {
	return Request{
		Model:            model,
		Messages:         messages,
		Temperature:      0,
		TopP:             0.9,
		ReturnCitations:  true,
		FrequencyPenalty: 1,
	}
}

// Choice is one completion candidate.
type Choice struct {
	Message      Message `json:"message"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the body of a successful completion.
type Response struct {
	ID        string   `json:"id"`
	Model     string   `json:"model"`
	Object    string   `json:"object"`
	Citations []string `json:"citations,omitempty"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	Created   int64    `json:"created"`
}
