package cli

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/logger"
	"github.com/myscheme/schemeapi/repository"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

//go:embed seed_data.yaml
var defaultSeed []byte

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
	Schemes    []seedScheme   `yaml:"schemes"`
}

type seedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Color       string `yaml:"color"`
}

type seedAge struct {
	Min *int `yaml:"min"`
	Max *int `yaml:"max"`
}

type seedEligibility struct {
	Age         *seedAge `yaml:"age"`
	Gender      []string `yaml:"gender"`
	IncomeGroup []string `yaml:"incomeGroup"`
	States      []string `yaml:"states"`
	Other       string   `yaml:"other"`
}

type seedScheme struct {
	Name                 string           `yaml:"name"`
	Description          string           `yaml:"description"`
	Benefits             []string         `yaml:"benefits"`
	Eligibility          *seedEligibility `yaml:"eligibility"`
	DocumentsRequired    []string         `yaml:"documentsRequired"`
	ApplicationProcedure string           `yaml:"applicationProcedure"`
	OfficialWebsite      string           `yaml:"officialWebsite"`
	Ministry             string           `yaml:"ministry"`
	Tags                 []string         `yaml:"tags"`
	Category             string           `yaml:"category"`
	LaunchedDate         *time.Time       `yaml:"launchedDate"`
}

func (s seedScheme) createDTO(categoryID bson.ObjectID) dto.CreateSchemeDTO {
	in := dto.CreateSchemeDTO{
		Name:                 s.Name,
		Description:          s.Description,
		Benefits:             s.Benefits,
		DocumentsRequired:    s.DocumentsRequired,
		ApplicationProcedure: s.ApplicationProcedure,
		OfficialWebsite:      s.OfficialWebsite,
		CategoryID:           categoryID.Hex(),
		Tags:                 s.Tags,
		Ministry:             s.Ministry,
		LaunchedDate:         s.LaunchedDate,
	}
	if e := s.Eligibility; e != nil {
		in.Eligibility = &dto.EligibilityDTO{
			Gender:      e.Gender,
			IncomeGroup: e.IncomeGroup,
			States:      e.States,
			Other:       e.Other,
		}
		if e.Age != nil {
			in.Eligibility.Age = &dto.AgeRangeDTO{Min: e.Age.Min, Max: e.Age.Max}
		}
	}
	return in
}

// loadSeedFile reads path, or the bundled sample data when path is empty.
func loadSeedFile(path string) (*seedFile, error) {
	raw := defaultSeed
	if path != "" {
		var err error
		if raw, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}
	var data seedFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

// seedStore creates the categories and schemes in data through the services,
// so slugs and schemeCount follow the same rules as the API. Categories that
// already exist are reused.
func seedStore(ctx context.Context, store repository.Store, data *seedFile, log *logger.Logger) error {
	categories := services.NewCategoryService(store, log.Logger)
	schemes := services.NewSchemeService(store, services.SchemeServiceOptions{}, log.Logger)

	byName := make(map[string]bson.ObjectID, len(data.Categories))
	for _, sc := range data.Categories {
		c, err := categories.Create(ctx, dto.CreateCategoryDTO{
			Name:        sc.Name,
			Description: sc.Description,
			Icon:        sc.Icon,
			Color:       sc.Color,
		})
		if errors.Is(err, apperrors.ErrConflict) {
			c, err = store.Categories().FindBySlug(ctx, utils.GenerateSlug(sc.Name))
		}
		if err != nil {
			return fmt.Errorf("seed category %q: %w", sc.Name, err)
		}
		byName[sc.Name] = c.Id
	}

	for _, s := range data.Schemes {
		categoryID, ok := byName[s.Category]
		if !ok {
			return fmt.Errorf("seed scheme %q: unknown category %q", s.Name, s.Category)
		}
		if _, err := schemes.Create(ctx, s.createDTO(categoryID)); err != nil {
			return fmt.Errorf("seed scheme %q: %w", s.Name, err)
		}
	}

	log.Info("seed data loaded", "categories", len(data.Categories), "schemes", len(data.Schemes))
	return nil
}

func NewSeedCommand(root *RootOptions) *cobra.Command {
	var (
		file  string
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and load sample categories and schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, log, err := root.load(nil)
			if err != nil {
				return err
			}
			data, err := loadSeedFile(file)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			if reset {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				log.Info("existing data cleared")
			}

			if cfg.Admin.Email != "" {
				tokens := utils.NewTokenIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
				auth := services.NewAuthService(store, tokens, log.Logger)
				if _, err := auth.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
					return fmt.Errorf("seed admin: %w", err)
				}
			} else {
				log.Warn("ADMIN_EMAIL not set; skipping admin account")
			}

			if err := seedStore(ctx, store, data, log); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories and %d schemes\n", len(data.Categories), len(data.Schemes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (defaults to the bundled sample data)")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear every collection before seeding")
	return cmd
}
