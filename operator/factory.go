package operator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Konsultn-Engineering/sqlmap/binding"
	"github.com/Konsultn-Engineering/sqlmap/cache"
	"github.com/Konsultn-Engineering/sqlmap/datasource"
	"github.com/Konsultn-Engineering/sqlmap/descriptor"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
	"github.com/Konsultn-Engineering/sqlmap/mapping"
	"github.com/Konsultn-Engineering/sqlmap/page"
	"github.com/Konsultn-Engineering/sqlmap/template"
	"github.com/Konsultn-Engineering/sqlmap/utils"
)

// Config holds the operator settings.
type Config struct {
	// CompatibleWithEmptyList turns an IN ( ) over an empty collection into
	// the empty result of the declared shape instead of an error.
	CompatibleWithEmptyList bool `koanf:"compatible_with_empty_list" yaml:"compatible_with_empty_list"`

	// CheckColumn fails struct mapping on result columns without a field.
	CheckColumn bool `koanf:"check_column" yaml:"check_column"`

	CacheSize int    `koanf:"cache_size" yaml:"cache_size"`
	Naming    string `koanf:"naming" yaml:"naming"` // snake (default), snake_singular, camel, pascal
}

// DefaultConfig returns the default operator settings.
func DefaultConfig() Config {
	return Config{
		CompatibleWithEmptyList: true,
		CacheSize:               256,
	}
}

// Factory compiles methods into operators.
type Factory struct {
	registry *datasource.Registry
	cfg      Config
	logger   *slog.Logger
	pages    page.Handler
	dialect  dialect.Dialect
	metrics  *Metrics
	naming   mapping.NamingStrategy
	count    mapping.RowMapper
	cache    *cache.LRU[uint64, Operator]
}

// Option configures a Factory.
type Option func(*Factory)

func WithConfig(cfg Config) Option {
	return func(f *Factory) { f.cfg = cfg }
}

// WithLogger sets the logger; compile decisions and calls log at debug.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

func WithPageHandler(h page.Handler) Option {
	return func(f *Factory) { f.pages = h }
}

// WithDialect renders every statement with d instead of the dialect of the
// store it is routed to.
func WithDialect(d dialect.Dialect) Option {
	return func(f *Factory) { f.dialect = d }
}

func WithMetrics(m *Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// WithCacheSize bounds the number of operators kept by Factory.Operator.
func WithCacheSize(n int) Option {
	return func(f *Factory) { f.cfg.CacheSize = n }
}

// NewFactory creates a factory routing to registry. A nil registry still
// plans methods but cannot compile them.
func NewFactory(registry *datasource.Registry, opts ...Option) (*Factory, error) {
	f := &Factory{registry: registry, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	if f.pages == nil {
		f.pages = page.NewHandler()
	}
	f.naming = mapping.NamingStrategyByName(f.cfg.Naming)
	if f.cfg.CacheSize <= 0 {
		f.cfg.CacheSize = DefaultConfig().CacheSize
	}

	count, err := mapping.NewSingleColumnMapper(int64Type)
	if err != nil {
		return nil, err
	}
	f.count = count

	c, err := cache.NewLRU[uint64, Operator](f.cfg.CacheSize, nil)
	if err != nil {
		return nil, err
	}
	f.cache = c
	return f, nil
}

// Plan runs every compile step for m without building an operator.
func (f *Factory) Plan(m *descriptor.Method) (*Plan, error) {
	fail := func(reason string, err error) (*Plan, error) {
		return nil, &ConfigError{Method: m.FullName(), Reason: reason, Err: err}
	}

	tmpl, err := template.Parse(m.SQL())
	if err != nil {
		return fail("parse sql", err)
	}

	params := m.Params()
	kind := Classify(params, tmpl)
	outer := binding.NewContext(params, f.naming)
	if kind == BatchUpdate {
		elem, err := params[0].ElementOf()
		if err != nil {
			return fail("batch parameter", err)
		}
		params = []descriptor.Parameter{elem}
	}
	ctx := outer
	if kind == BatchUpdate {
		ctx = binding.NewContext(params, f.naming)
	}

	bound, err := tmpl.Bind(ctx)
	if err != nil {
		return fail("bind placeholders", err)
	}
	table, err := newTableResolver(m, bound, ctx, f.naming)
	if err != nil {
		return fail("table routing", err)
	}
	store, err := newStoreResolver(kind, m, ctx, f.registry)
	if err != nil {
		return fail("store routing", err)
	}

	p := &Plan{
		Method:    m,
		Kind:      kind,
		Template:  bound,
		Params:    params,
		Table:     table,
		Store:     store,
		outer:     outer,
		ctx:       ctx,
		pageParam: -1,
	}

	switch kind {
	case Query:
		if p.Result, err = newResultPlan(m, f.naming, f.cfg.CheckColumn); err != nil {
			return fail("result mapping", err)
		}
		if p.pageParam, err = findPageParam(params); err != nil {
			return fail("page parameter", err)
		}
		if p.Result.Shape() == descriptor.ShapePage && p.pageParam < 0 {
			return fail("result mapping", errPagedWithoutPage)
		}
	case Update:
		if p.updateRet, err = updateResult(m.Return()); err != nil {
			return fail("result mapping", err)
		}
	case BatchUpdate:
		if p.batchRet, err = batchResult(m.Return()); err != nil {
			return fail("result mapping", err)
		}
	}

	f.logger.Debug("compiled",
		"method", m.FullName(),
		"kind", kind.String(),
		"class", store.Class().String(),
		"table", table.String(),
		"store", store.String())
	return p, nil
}

// Compile builds an operator for m.
func (f *Factory) Compile(m *descriptor.Method) (Operator, error) {
	if f.registry == nil {
		return nil, &ConfigError{Method: m.FullName(), Reason: "factory has no store registry"}
	}
	p, err := f.Plan(m)
	if err != nil {
		return nil, err
	}

	b := base{plan: p, dialect: f.dialect, cfg: f.cfg, logger: f.logger, metrics: f.metrics}
	switch p.Kind {
	case Query:
		return &queryOperator{base: b, pages: f.pages, count: f.count}, nil
	case Update:
		return &updateOperator{base: b}, nil
	default:
		return &batchOperator{base: b}, nil
	}
}

// Operator returns the cached operator for m, compiling it on first use.
// Methods are identified by owner, name and SQL text, mixed with their
// signature and routing directives.
func (f *Factory) Operator(m *descriptor.Method) (Operator, error) {
	key := utils.Mix64(utils.Fingerprint(m.Owner().ID, m.Name(), strings.TrimSpace(m.SQL())), signature(m))
	return f.cache.GetOrAdd(key, func() (Operator, error) {
		return f.Compile(m)
	})
}

// signature fingerprints the parts of m that change the compiled operator
// besides its SQL.
func signature(m *descriptor.Method) uint64 {
	params := m.Params()
	parts := make([]string, 0, len(params)+1)
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s %v", p, p.Shard))
	}
	ret := "void"
	if t := m.Return().Type; t != nil {
		ret = t.PkgPath() + " " + t.String()
	}
	parts = append(parts, ret)

	directives := fmt.Sprintf("%v|%s|%s|%s|%T|%v", m.UsePrimary(), m.GlobalTable(), m.StoreName(),
		m.Owner().Table, m.Mapper(), m.Results())
	if sh := m.Sharding(); sh != nil {
		directives += fmt.Sprintf("|%T%+v|%T%+v", sh.Table, sh.Table, sh.Store, sh.Store)
	}
	return utils.Mix64(utils.Fingerprint(parts...), utils.U64(directives))
}
