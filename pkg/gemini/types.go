package gemini

// Request is the streamGenerateContent body.
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
	Tools            []Tool            `json:"tools,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part carries either text or a file reference.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"fileData,omitempty"`
}

type FileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type GenerationConfig struct {
	ThinkingConfig *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

type GoogleSearch struct{}

const (
	RoleUser      = "user"
	VideoMIMEType = "video/*"
)

// TextPart is a convenience constructor.
func TextPart(text string) Part {
	return Part{Text: text}
}

// VideoPart references a video by URI.
func VideoPart(uri string) Part {
	return Part{FileData: &FileData{MIMEType: VideoMIMEType, FileURI: uri}}
}
