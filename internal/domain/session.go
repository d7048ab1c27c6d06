package domain

import "time"

// ImageRef points at a stored blob. Key may be empty on legacy records whose
// key was never persisted; URL is always set once an image exists.
type ImageRef struct {
	Key string `json:"key,omitempty" dynamodbav:"key,omitempty"`
	URL string `json:"url" dynamodbav:"url"`
}

// IsZero reports whether the reference points at nothing.
func (r ImageRef) IsZero() bool {
	return r.Key == "" && r.URL == ""
}

// Preferences are the categorical style choices submitted with a generate call.
type Preferences struct {
	Style         string `json:"style" dynamodbav:"style"`
	Mood          string `json:"mood" dynamodbav:"mood"`
	Functionality string `json:"functionality" dynamodbav:"functionality"`
	Palette       string `json:"palette" dynamodbav:"palette"`
	Clutter       string `json:"clutter" dynamodbav:"clutter"`
	Addendum      string `json:"addendum,omitempty" dynamodbav:"addendum,omitempty"`
}

// Item is a single suggested product with a search link.
type Item struct {
	Name  string `json:"name" dynamodbav:"name"`
	Price string `json:"price" dynamodbav:"price"`
	Link  string `json:"link" dynamodbav:"link"`
}

// SessionState is the persisted record for one thread.
type SessionState struct {
	ThreadToken      string      `json:"thread_id" dynamodbav:"threadId"`
	OriginalImage    ImageRef    `json:"original_image" dynamodbav:"originalImage"`
	OriginalFilename string      `json:"original_filename,omitempty" dynamodbav:"originalFilename,omitempty"`
	Preferences      Preferences `json:"preferences" dynamodbav:"preferences"`
	ComposedPrompt   string      `json:"composed_prompt,omitempty" dynamodbav:"composedPrompt,omitempty"`
	Items            []Item      `json:"items" dynamodbav:"items"`
	GeneratedImage   ImageRef    `json:"generated_image" dynamodbav:"generatedImage"`
	UpdatedAt        time.Time   `json:"updated_at" dynamodbav:"updatedAt"`
}
