package plantid

// systemPrompt instructs the model to answer with the exact record schema.
// Keeping the schema in the prompt is what makes the strict parse path the
// common case.
const systemPrompt = `You are a botanist identifying plants from photos. ` +
	`Respond with a single JSON object and nothing else, using exactly this schema: ` +
	`{"plantName": string, "scientificName": string, "family": string, ` +
	`"confidence": number between 0 and 100, "description": string, ` +
	`"careInstructions": {"light": string, "water": string, "soil": string, ` +
	`"temperature": string, "humidity": string, "fertilizer": string, ` +
	`"propagation": string, "commonIssues": string}, ` +
	`"characteristics": {"size": string, "growth": string, "blooming": string, ` +
	`"toxicity": string, "difficulty": string}, ` +
	`"seasonalCare": {"spring": string, "summer": string, "fall": string, "winter": string}, ` +
	`"tips": [string]}. ` +
	`If the plant cannot be identified, still fill every field with your best guidance ` +
	`and set confidence accordingly.`

const userPrompt = `Identify the plant in this photo and describe how to care for it.`

// Chat-completion wire types. Content is either a plain string (system
// message) or a list of parts (user message with an inline image).
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func buildRequest(model, dataURI string, maxTokens int, temperature float64) *chatRequest {
	return &chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			}},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}
