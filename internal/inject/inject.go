package inject

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/fusionbot/internal/batch"
	appconfig "github.com/dmorgan81/fusionbot/internal/config"
	"github.com/dmorgan81/fusionbot/internal/feed"
	"github.com/dmorgan81/fusionbot/internal/handler"
	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/image"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/page"
	"github.com/dmorgan81/fusionbot/internal/param"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/dmorgan81/fusionbot/internal/store"
	"github.com/dmorgan81/fusionbot/internal/web"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg *appconfig.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*slog.Logger](injector, log)
	do.ProvideValue[*appconfig.Config](injector, cfg)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)

	do.ProvideNamed[string](injector, "inference_token", func(i *do.Injector) (string, error) {
		return param.Resolve(ctx, lazyFetcher{i}, cfg.Inference.TokenParam, cfg.Inference.Token)
	})
	do.Provide[image.Endpoint](injector, func(i *do.Injector) (image.Endpoint, error) {
		return cfg.Inference.Endpoint(do.MustInvokeNamed[string](i, "inference_token")), nil
	})
	do.Provide[image.Generator](injector, image.NewGenerator)

	do.ProvideNamed[[]string](injector, "variations", func(i *do.Injector) ([]string, error) {
		return param.ResolveAll(ctx, lazyFetcher{i}, cfg.Catalog.VariationsParam, cfg.Catalog.Variations)
	})
	do.Provide[prompt.Catalog](injector, func(i *do.Injector) (prompt.Catalog, error) {
		return cfg.PromptCatalog(do.MustInvokeNamed[[]string](i, "variations")), nil
	})
	do.Provide[*prompt.Builder](injector, func(i *do.Injector) (*prompt.Builder, error) {
		variations := do.MustInvoke[prompt.Catalog](i).Variations
		return prompt.NewBuilder(variations, rand.NewSource(time.Now().UTC().UnixNano())), nil
	})

	do.ProvideNamedValue[int](injector, "batch_limit", cfg.Batch.Concurrency)
	do.Provide[*batch.Runner](injector, batch.NewRunner)
	do.ProvideValue[*history.Store](injector, history.New(cfg.History.MaxEntries))

	do.ProvideNamedValue[string](injector, "bucket", cfg.Store.Bucket)
	do.ProvideNamedValue[string](injector, "distribution", cfg.Store.Distribution)
	do.ProvideNamedValue[string](injector, "archive_dir", cfg.Store.Dir)
	if cfg.Store.Bucket != "" {
		do.Provide[store.Uploader](injector, store.NewS3Uploader)
	} else {
		do.Provide[store.Uploader](injector, store.NewFileUploader)
	}
	if cfg.Store.Distribution != "" {
		do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
	} else {
		do.ProvideValue[store.Invalidator](injector, store.NopInvalidator{})
	}

	do.Provide[*handler.Handler](injector, handler.NewHandler)

	do.ProvideValue[*page.Templator](injector, &page.Templator{})
	do.ProvideNamedValue[string](injector, "base_url", cfg.Server.BaseURL)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*web.Server](injector, web.NewServer)

	return injector
}

// lazyFetcher defers building the SSM client until a parameter is actually
// needed, so local runs without AWS credentials never touch it.
type lazyFetcher struct {
	i *do.Injector
}

func (f lazyFetcher) Fetch(ctx context.Context, path string) (string, error) {
	fetcher, err := do.Invoke[param.Fetcher](f.i)
	if err != nil {
		return "", err
	}
	return fetcher.Fetch(ctx, path)
}

func (f lazyFetcher) FetchAll(ctx context.Context, path string) ([]string, error) {
	fetcher, err := do.Invoke[param.Fetcher](f.i)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchAll(ctx, path)
}
