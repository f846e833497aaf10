package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "fedipage"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host           string
		HttpPort       int    `yaml:"httpPort"`
		SslDomain      string `yaml:"sslDomain"`
		WithAp         bool   `yaml:"withAp"`
		MaxAvatarBytes int64  `yaml:"maxAvatarBytes"`
		Author         struct {
			Username string `yaml:"username"`
			Name     string `yaml:"name"`
			Summary  string `yaml:"summary"`
		} `yaml:"author"`
		S3             struct {
			Endpoint      string `yaml:"endpoint"`
			Region        string `yaml:"region"`
			Bucket        string `yaml:"bucket"`
			AccessKey     string `yaml:"accessKey"`
			SecretKey     string `yaml:"secretKey"`
			PublicBaseUrl string `yaml:"publicBaseUrl"`
		} `yaml:"s3"`
	}
}

// PublicURL returns the canonical https base URL of this instance
func (c *AppConfig) PublicURL() string {
	return fmt.Sprintf("https://%s", c.Conf.SslDomain)
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("FEDIPAGE_HOST")
	envHttpPort := os.Getenv("FEDIPAGE_HTTPPORT")
	envSslDomain := os.Getenv("FEDIPAGE_SSLDOMAIN")
	envWithAp := os.Getenv("FEDIPAGE_WITH_AP")
	envMaxAvatar := os.Getenv("FEDIPAGE_MAX_AVATAR_BYTES")
	envAuthorUsername := os.Getenv("FEDIPAGE_AUTHOR_USERNAME")
	envAuthorName := os.Getenv("FEDIPAGE_AUTHOR_NAME")
	envAuthorSummary := os.Getenv("FEDIPAGE_AUTHOR_SUMMARY")
	envS3Endpoint := os.Getenv("FEDIPAGE_S3_ENDPOINT")
	envS3Region := os.Getenv("FEDIPAGE_S3_REGION")
	envS3Bucket := os.Getenv("FEDIPAGE_S3_BUCKET")
	envS3AccessKey := os.Getenv("FEDIPAGE_S3_ACCESS_KEY")
	envS3SecretKey := os.Getenv("FEDIPAGE_S3_SECRET_KEY")
	envS3PublicBase := os.Getenv("FEDIPAGE_S3_PUBLIC_BASE_URL")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envSslDomain != "" {
		c.Conf.SslDomain = envSslDomain
	}

	if envWithAp == "true" {
		c.Conf.WithAp = true
	}

	if envMaxAvatar != "" {
		v, err := strconv.ParseInt(envMaxAvatar, 10, 64)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.MaxAvatarBytes = v
	}

	if envAuthorUsername != "" {
		c.Conf.Author.Username = envAuthorUsername
	}

	if envAuthorName != "" {
		c.Conf.Author.Name = envAuthorName
	}

	if envAuthorSummary != "" {
		c.Conf.Author.Summary = envAuthorSummary
	}

	if envS3Endpoint != "" {
		c.Conf.S3.Endpoint = envS3Endpoint
	}

	if envS3Region != "" {
		c.Conf.S3.Region = envS3Region
	}

	if envS3Bucket != "" {
		c.Conf.S3.Bucket = envS3Bucket
	}

	if envS3AccessKey != "" {
		c.Conf.S3.AccessKey = envS3AccessKey
	}

	if envS3SecretKey != "" {
		c.Conf.S3.SecretKey = envS3SecretKey
	}

	if envS3PublicBase != "" {
		c.Conf.S3.PublicBaseUrl = envS3PublicBase
	}

	if c.Conf.MaxAvatarBytes <= 0 {
		c.Conf.MaxAvatarBytes = 2 * 1024 * 1024
	}

	if c.Conf.Author.Username == "" {
		c.Conf.Author.Username = "blog"
	}
	if c.Conf.Author.Name == "" {
		c.Conf.Author.Name = c.Conf.Author.Username
	}

	return c, nil
}
