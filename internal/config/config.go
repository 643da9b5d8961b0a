package config

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"

	"selwood.net/tasklock"

	yaml "gopkg.in/yaml.v2"
)

var _ tasklock.ConfigurationService = &fileConfigurationService{}

type fileConfigurationService struct {
	files []string
}

// LoadConfiguration folds every file into one Configuration; later files
// override earlier ones key by key.
func (fc *fileConfigurationService) LoadConfiguration() (*tasklock.Configuration, error) {
	var c tasklock.Configuration
	for _, file := range fc.files {
		err := fc.appendFileToConfiguration(&c, file)
		if err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (fc *fileConfigurationService) appendFileToConfiguration(c *tasklock.Configuration, filename string) error {
	// Funcs must be registered before parsing or {{env}} calls fail to
	// resolve.
	tmpl, err := template.New(filepath.Base(filename)).Funcs(template.FuncMap{
		"env": func(key string) (string, error) {
			return os.Getenv(key), nil
		},
	}).ParseFiles(filename)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	err = tmpl.Execute(buf, c)
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(buf.Bytes(), c)
	if err != nil {
		return err
	}

	return nil
}

func NewFileConfigurationService(files []string) tasklock.ConfigurationService {
	return &fileConfigurationService{
		files: files,
	}
}
