package model

// Language maps an internal language id to the runner's language/version pair.
type Language struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Runtime  string `json:"runtime"`
	Version  string `json:"version"`
	FileName string `json:"file_name"`
}

var SupportedLanguages = []Language{
	{ID: "python", Name: "Python 3", Runtime: "python", Version: "3.10.0", FileName: "main.py"},
	{ID: "javascript", Name: "JavaScript (Node.js)", Runtime: "javascript", Version: "18.15.0", FileName: "main.js"},
	{ID: "typescript", Name: "TypeScript", Runtime: "typescript", Version: "5.0.3", FileName: "main.ts"},
	{ID: "cpp", Name: "C++", Runtime: "c++", Version: "10.2.0", FileName: "main.cpp"},
	{ID: "c", Name: "C", Runtime: "c", Version: "10.2.0", FileName: "main.c"},
	{ID: "java", Name: "Java", Runtime: "java", Version: "15.0.2", FileName: "Main.java"},
	{ID: "go", Name: "Go", Runtime: "go", Version: "1.16.2", FileName: "main.go"},
	{ID: "rust", Name: "Rust", Runtime: "rust", Version: "1.68.2", FileName: "main.rs"},
}

func LookupLanguage(id string) (Language, bool) {
	for _, lang := range SupportedLanguages {
		if lang.ID == id {
			return lang, true
		}
	}
	return Language{}, false
}
