// Package api holds the JSON wire types shared by the book server and its clients.
package api

// Paper sizes accepted by the generator. Unknown values fall back to Letter.
const (
	PaperA4     = "A4"
	PaperA5     = "A5"
	PaperLetter = "Letter"
)

// Font styles accepted by the generator. Unknown values fall back to Helvetica.
const (
	FontHelvetica = "Helvetica"
	FontTimes     = "Times"
	FontCourier   = "Courier"
)

// DefaultBookName is used when a request carries no book name.
const DefaultBookName = "Generated Topic Book"

// GeneratePath is the endpoint that turns a BookRequest into a PDF.
const GeneratePath = "/generate-pdf"

var (
	PaperSizes = []string{PaperA4, PaperA5, PaperLetter}
	FontSizes  = []string{"10", "12", "14", "16"}
	FontStyles = []string{FontHelvetica, FontTimes, FontCourier}
)

// BookRequest is the payload submitted to request PDF generation
type BookRequest struct {
	Topics    []string `json:"topics"`
	BookName  string   `json:"bookName"`
	PaperSize string   `json:"paperSize"`
	FontSize  string   `json:"fontSize"`
	FontStyle string   `json:"fontStyle"`
}

// Response is the body returned by the generation endpoint. A non-empty
// Error marks a server-reported failure.
type Response struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	File    string `json:"file,omitempty"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests
type LoginResponse struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// FileEntry describes one generated book owned by the caller
type FileEntry struct {
	Filename  string `json:"filename"`
	CreatedAt string `json:"created_at"`
}

// FilesResponse is the body of GET /api/files
type FilesResponse struct {
	Files []FileEntry `json:"files"`
	Error string      `json:"error,omitempty"`
}
