package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	appfreight "github.com/movmais/backend/internal/application/freight"
	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/ecommerce"
)

// OrdersJob ingests one window of vendor orders for a tenant installation
func (r *Runner) OrdersJob(opts OrdersOptions) Job {
	platform := integration.PlatformSlug(opts.Platform)
	return Job{
		Command:   CommandFreightOrders,
		CompanyID: opts.CompanyID,
		Platform:  platform,
		Run: func(ctx context.Context, log *zap.Logger) (map[string]any, error) {
			install, err := r.installation(ctx, opts.CompanyID, platform)
			if err != nil {
				return nil, err
			}
			client, err := r.freightHubClient(install)
			if err != nil {
				return nil, err
			}

			var quotes freight.QuoteSource
			if client.HasQuoteCredential() {
				quotes = client
			} else {
				log.Warn("No quote credential configured, quote details will not be fetched")
			}

			scope := appfreight.RunScope{CompanyID: opts.CompanyID, Platform: platform}
			resolver := appfreight.NewProductResolver(r.stores.Products, opts.CompanyID)
			reconciler := appfreight.NewQuoteReconciler(r.stores.Quotes, quotes, resolver, r.classifier, scope, log)
			svc := appfreight.NewOrderIngestionService(
				r.stores.Orders, client, reconciler, r.classifier, scope, install.Location(r.location), log,
			)

			stats, err := svc.Run(ctx, appfreight.OrderIngestionRequest{
				Start:    opts.Start,
				End:      opts.End,
				PageSize: opts.Limit,
			})
			return stats.Counters(), err
		},
	}
}

// BestOptionJob fills the best deadline and cost of quotes that lack them
func (r *Runner) BestOptionJob(opts BatchOptions) Job {
	return Job{
		Command:   CommandFreightBestOption,
		CompanyID: opts.CompanyID,
		Platform:  integration.PlatformFreightHub,
		Run: func(ctx context.Context, log *zap.Logger) (map[string]any, error) {
			svc := appfreight.NewBestOptionService(r.stores.Quotes, r.classifier, log)
			stats, err := svc.Run(ctx, opts.Request())
			return stats.Counters(), err
		},
	}
}

// DateBackfillJob splits stored timestamps into local date and time columns
func (r *Runner) DateBackfillJob(opts DateBackfillOptions) (Job, error) {
	entity, err := appfreight.ParseDateSplitEntity(opts.Entity)
	if err != nil {
		return Job{}, fmt.Errorf("%w: --entity: %v", ErrUsage, err)
	}

	var store appfreight.DateSplitStore = r.stores.Quotes
	if entity == appfreight.DateSplitOrders {
		store = r.stores.Orders
	}

	return Job{
		Command:   CommandBackfillDatetime + ":" + string(entity),
		CompanyID: opts.CompanyID,
		Platform:  integration.PlatformFreightHub,
		Run: func(ctx context.Context, log *zap.Logger) (map[string]any, error) {
			loc := r.location
			if opts.CompanyID > 0 {
				if install, err := r.stores.Platforms.FindByCompanyAndPlatform(ctx, opts.CompanyID, integration.PlatformFreightHub); err == nil {
					loc = install.Location(loc)
				}
			}
			log.Info("Splitting timestamps", zap.String("entity", string(entity)), zap.String("timezone", loc.String()))

			svc := appfreight.NewDateSplitBackfill(store, loc, r.classifier, log)
			stats, err := svc.Run(ctx, opts.Request())
			return stats.Counters(), err
		},
	}, nil
}

// QuoteOptionsBackfillJob re-derives missing option rows from stored raw snapshots
func (r *Runner) QuoteOptionsBackfillJob(opts BatchOptions) Job {
	return Job{
		Command:   CommandBackfillQuoteOptions,
		CompanyID: opts.CompanyID,
		Platform:  integration.PlatformFreightHub,
		Run: func(ctx context.Context, log *zap.Logger) (map[string]any, error) {
			svc := appfreight.NewQuoteOptionsBackfill(r.stores.Quotes, ecommerce.DecodeQuoteOptions, r.classifier, log)
			stats, err := svc.Run(ctx, opts.Request())
			return stats.Counters(), err
		},
	}
}

// installation loads the tenant and its platform installation, failing on any configuration gap
func (r *Runner) installation(ctx context.Context, companyID int64, platform integration.PlatformSlug) (*integration.CompanyPlatform, error) {
	if _, err := r.stores.Companies.FindByID(ctx, companyID); err != nil {
		return nil, freight.ClassifyStoreError(r.classifier, fmt.Sprintf("company %d", companyID), err)
	}
	install, err := r.stores.Platforms.FindByCompanyAndPlatform(ctx, companyID, platform)
	if err != nil {
		return nil, freight.ClassifyStoreError(r.classifier, fmt.Sprintf("company %d platform %s", companyID, platform), err)
	}
	return install, nil
}

func (r *Runner) freightHubClient(install *integration.CompanyPlatform) (*ecommerce.FreightHubClient, error) {
	token, err := install.OrdersToken()
	if err != nil {
		return nil, err
	}
	baseURL := install.Config.BaseURL
	if baseURL == "" {
		baseURL = r.ingestion.BaseURL
	}
	return ecommerce.NewFreightHubClient(&ecommerce.FreightHubConfig{
		APIBaseURL: baseURL,
		Token:      token,
		QuoteToken: install.QuoteToken(),
		DateField:  install.Config.OrderDateField,
		Location:   install.Location(r.location),
	}, r.fetcher)
}
