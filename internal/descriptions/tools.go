package descriptions

// Tool descriptions shown to MCP clients

const (
	BookGenerateDescription = `Write a PDF book with one chapter per topic.

**When to use:** The user wants a printable book, study guide or handout covering a list of subjects.

**What you get:** A cover page, a copyright page, a table of contents and a chapter for every topic. Chapter text is written by the configured language model. Repeated topics become repeated chapters but are only generated once.

**Examples:**
• Study guide: topics ["Goroutines", "Channels", "Select"], book_name "Go Concurrency"
• Handout: topics ["Photosynthesis"], paper_size "A5", font_size "14"

**Options:**
• paper_size: A4, A5 or Letter (default Letter, unknown values fall back to Letter)
• font_style: Helvetica, Times or Courier (default Helvetica)
• font_size: whole number between 6 and 36 (default 12)

**Best practices:** Keep topics short and specific, the topic text is the prompt. Follow with book_stats to confirm the page count.`

	BookListDescription = `List the books generated for this account, newest first.

**When to use:** Find the file name of an earlier book before asking for its statistics, or check that a generation finished.

**Returns:** File name and creation time for every book.`

	BookStatsDescription = `Report size, page count, title and author of a generated book.

**When to use:** After book_generate, or to inspect any book returned by book_list.

**Examples:**
• "How many pages is Go_Concurrency_20240305_140709.pdf?"

**Best practices:** Pass the bare file name exactly as book_list shows it, paths are not accepted.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"book_generate": BookGenerateDescription,
	"book_list":     BookListDescription,
	"book_stats":    BookStatsDescription,
}

// GetToolDescription returns the description for a tool, or empty if unknown
func GetToolDescription(toolName string) string {
	return ToolDescriptions[toolName]
}
