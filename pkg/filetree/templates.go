package filetree

// defaultTemplates maps a lower-cased file extension to its default
// content for createFile when no explicit content is supplied. Extensions
// not present here fall back to defaultTemplate.
var defaultTemplates = map[string]string{
	"js":   "// New file\n",
	"jsx":  "// New file\n",
	"ts":   "// New file\n",
	"tsx":  "// New file\n",
	"py":   "# New file\n",
	"html": "<!DOCTYPE html>\n<html>\n<head>\n  <title></title>\n</head>\n<body>\n\n</body>\n</html>\n",
	"css":  "/* New file */\n",
	"json": "{}\n",
	"md":   "# New file\n",
	"txt":  "",
}

const defaultTemplate = "// New file\n"

// TemplateFor returns the default content for a given (already lower-
// cased) extension.
func TemplateFor(extension string) string {
	if tmpl, ok := defaultTemplates[extension]; ok {
		return tmpl
	}
	return defaultTemplate
}
