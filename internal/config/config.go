package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Gastos"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	SharePoint struct {
		SiteURL      string        `envconfig:"SHAREPOINT_SITE_URL"`
		GraphBaseURL string        `envconfig:"GRAPH_BASE_URL" default:"https://graph.microsoft.com/v1.0"`
		Timeout      time.Duration `envconfig:"SHAREPOINT_TIMEOUT" default:"30s"`
		PageSize     int           `envconfig:"SHAREPOINT_PAGE_SIZE" default:"200"`
		StrictSchema bool          `envconfig:"SHAREPOINT_STRICT_SCHEMA" default:"false"`

		Lists struct {
			Gastos         string `envconfig:"LIST_GASTOS" default:"Gastos"`
			Empresas       string `envconfig:"LIST_EMPRESAS" default:"Empresas"`
			Proyectos      string `envconfig:"LIST_PROYECTOS" default:"Proyectos"`
			Colaboradores  string `envconfig:"LIST_COLABORADORES" default:"Colaboradores"`
			Categorias     string `envconfig:"LIST_CATEGORIAS" default:"Categorias"`
			TiposDocumento string `envconfig:"LIST_TIPOS_DOCUMENTO" default:"TiposDocumento"`
			Adjuntos       string `envconfig:"LIBRARY_ADJUNTOS" default:"Documentos Gastos"`
		}
	}

	Auth struct {
		TenantID     string `envconfig:"AZURE_TENANT_ID"`
		ClientID     string `envconfig:"AZURE_CLIENT_ID"`
		ClientSecret string `envconfig:"AZURE_CLIENT_SECRET"`
		// Scopes for the list/row API. The SharePoint audience is derived from the site host.
		GraphScopes []string `envconfig:"GRAPH_SCOPES" default:"https://graph.microsoft.com/Sites.ReadWrite.All,offline_access"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"gastos"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"60s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}
}

// JournalEnabled reports whether a Postgres database is configured for the attachment journal.
func (c *Config) JournalEnabled() bool {
	return c.DB.Host != ""
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// SiteHost returns the hostname and server-relative path of the configured site.
func (c *Config) SiteHost() (string, string, error) {
	u, err := url.Parse(c.SharePoint.SiteURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing site url: %w", err)
	}

	if u.Host == "" {
		return "", "", fmt.Errorf("site url %q has no host", c.SharePoint.SiteURL)
	}

	return u.Host, strings.TrimSuffix(u.Path, "/"), nil
}

// SharePointScopes returns the scopes for direct document library access.
func (c *Config) SharePointScopes() []string {
	host, _, err := c.SiteHost()
	if err != nil {
		return nil
	}

	return []string{"https://" + host + "/AllSites.Read", "offline_access"}
}

// Validate performs presence checks only.
func (c *Config) Validate() error {
	var errs []error

	if c.SharePoint.SiteURL == "" {
		errs = append(errs, errors.New("SHAREPOINT_SITE_URL is required"))
	}

	if c.Auth.TenantID == "" {
		errs = append(errs, errors.New("AZURE_TENANT_ID is required"))
	}

	if c.Auth.ClientID == "" {
		errs = append(errs, errors.New("AZURE_CLIENT_ID is required"))
	}

	return errors.Join(errs...)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
