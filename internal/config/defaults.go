package config

// DefaultExtensions are the file types the extractor understands.
var DefaultExtensions = []string{".pdf", ".pptx", ".xlsx", ".docx", ".odt", ".odp", ".ods", ".rtf", ".txt", ".md", ".rst"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/biblio/data/db/corpus.db"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite3"
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Corpus.Recursive == nil {
		t := true
		cfg.Corpus.Recursive = &t
	}
	if cfg.Corpus.Delimiter == "" {
		cfg.Corpus.Delimiter = "$"
	}
	if cfg.Query.DefaultColumn == "" {
		cfg.Query.DefaultColumn = "content"
	}
	if cfg.Query.DefaultIDs == "" {
		cfg.Query.DefaultIDs = "%"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 2000
	}
}
