package pharmacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Placeholders for fields DailyMed does not provide.
const (
	importDescription = "No description available"
	importPrice       = 10.00
	importStock       = 100
)

const MsgImported = "Successfully fetched and added medicines from DailyMed API"

type dailyMedResponse struct {
	Data []struct {
		Title string `json:"title"`
	} `json:"data"`
}

// ImportResult lists what an import did with each title it saw.
type ImportResult struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped"`
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ImporterOption {
	return func(i *Importer) { i.client = c }
}

// Importer adds medicines found in the DailyMed label search to the
// catalog.
type Importer struct {
	svc     *Service
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewImporter(svc *Service, baseURL string, logger zerolog.Logger, opts ...ImporterOption) *Importer {
	i := &Importer{
		svc:     svc,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "dailymed").Logger(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// medicineName takes the text before " - " in a label title.
func medicineName(title string) string {
	name, _, _ := strings.Cut(title, " - ")
	return strings.TrimSpace(name)
}

func (i *Importer) fetch(ctx context.Context, drugName string) ([]string, error) {
	u := i.baseURL + "/spls.json?" + url.Values{"drug_name": {drugName}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build dailymed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dailymed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch dailymed: unexpected status %d", resp.StatusCode)
	}

	var body dailyMedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode dailymed response: %w", err)
	}
	titles := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		titles = append(titles, d.Title)
	}
	return titles, nil
}

// Import searches DailyMed for drugName and creates every medicine not
// already in the catalog.
func (i *Importer) Import(ctx context.Context, drugName string) (*ImportResult, error) {
	drugName = strings.TrimSpace(drugName)
	if drugName == "" {
		drugName = "aspirin"
	}
	titles, err := i.fetch(ctx, drugName)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Imported: []string{}, Skipped: []string{}}
	seen := make(map[string]bool)
	for _, title := range titles {
		name := medicineName(title)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		_, err := i.svc.medicines.GetByName(ctx, name)
		if err == nil {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if !errors.Is(err, ErrMedicineNotFound) {
			return nil, fmt.Errorf("look up %s: %w", name, err)
		}

		m := &Medicine{Name: name, Description: importDescription, Price: importPrice, Stock: importStock}
		if err := i.svc.CreateMedicine(ctx, m); err != nil {
			if errors.Is(err, ErrMedicineExists) {
				res.Skipped = append(res.Skipped, name)
				continue
			}
			return nil, fmt.Errorf("import %s: %w", name, err)
		}
		res.Imported = append(res.Imported, name)
	}

	i.logger.Info().Str("drug_name", drugName).
		Int("imported", len(res.Imported)).Int("skipped", len(res.Skipped)).
		Msg("dailymed import finished")
	return res, nil
}
