package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/config"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/logger"
	"github.com/nikolayk812/storefront-cart/internal/metrics"
	"github.com/nikolayk812/storefront-cart/internal/notify"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/rediscart"
	"github.com/nikolayk812/storefront-cart/internal/repository"
	"github.com/nikolayk812/storefront-cart/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const usage = `usage: cartctl [-token TOKEN] <command> [args]

commands:
  list                                  show the cart and its subtotal
  add <product-id> [quantity]           set the quantity of a product (default 1)
  update <product-id> <quantity>        change the quantity of a product already in the cart
  remove <product-id>                   remove a product from the cart
  clear                                 remove every product from the cart
  checkout                              place an order for the cart (postgres backend)
  seed <name> <price> <currency> [url]  create a product
  token <user-id> [email]               issue an access token (dev only)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type backend struct {
	gateway  port.CartGateway
	orders   port.OrderPlacer
	products port.ProductCatalog
	close    func()
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cartctl", flag.ContinueOnError)
	token := fs.String("token", os.Getenv("CART_ACCESS_TOKEN"), "access token issued by the auth service")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("command is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log := logger.New(logger.Options{Service: "cartctl", Level: cfg.LogLevel, Format: cfg.LogFormat})

	verifier, err := session.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("session.NewVerifier: %w", err)
	}

	command, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if command == "token" {
		return issueToken(verifier, cmdArgs, out)
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	if command == "seed" {
		return seedProduct(ctx, be.products, cmdArgs, out)
	}

	reg := prometheus.NewRegistry()
	gatewayMetrics, err := metrics.NewGatewayMetrics(reg)
	if err != nil {
		return fmt.Errorf("metrics.NewGatewayMetrics: %w", err)
	}
	defer logMetrics(log, reg)

	sess, err := verifier.Verify(*token)
	if err != nil {
		log.Warn().Err(err).Msg("continuing without a user")
	}

	policy, err := cart.ParseClearPolicy(cfg.ClearPolicy)
	if err != nil {
		return err
	}

	opts := []cart.Option{cart.WithClearPolicy(policy), cart.WithDeleteLimit(cfg.DeleteLimit)}
	if be.orders != nil {
		opts = append(opts, cart.WithOrderPlacer(be.orders))
	}

	store, err := cart.NewStore(sess, metrics.InstrumentGateway(be.gateway, gatewayMetrics), notify.NewWriterNotifier(out), log, opts...)
	if err != nil {
		return fmt.Errorf("cart.NewStore: %w", err)
	}

	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	if err := dispatch(ctx, store, command, cmdArgs); err != nil {
		return err
	}

	return printCart(out, store)
}

func openBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return backend{}, fmt.Errorf("redis ping: %w", err)
		}

		store, err := rediscart.New(client)
		if err != nil {
			_ = client.Close()
			return backend{}, fmt.Errorf("rediscart.New: %w", err)
		}

		return backend{
			gateway:  store,
			products: store,
			close:    func() { _ = client.Close() },
		}, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return backend{}, fmt.Errorf("pool.Ping: %w", err)
		}

		gateway, err := repository.NewCart(pool)
		if err != nil {
			pool.Close()
			return backend{}, fmt.Errorf("repository.NewCart: %w", err)
		}

		orders, err := repository.NewOrder(pool)
		if err != nil {
			pool.Close()
			return backend{}, fmt.Errorf("repository.NewOrder: %w", err)
		}

		return backend{
			gateway:  gateway,
			orders:   orders,
			products: repository.NewProduct(pool),
			close:    pool.Close,
		}, nil
	}
}

func dispatch(ctx context.Context, store *cart.Store, command string, args []string) error {
	switch command {
	case "list":
		return nil

	case "add":
		productID, err := productArg(args, 0)
		if err != nil {
			return err
		}
		quantity := 1
		if len(args) > 1 {
			if quantity, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("quantity[%s] is not a number: %w", args[1], err)
			}
		}
		return store.AddToCart(ctx, productID, quantity)

	case "update":
		productID, err := productArg(args, 0)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return fmt.Errorf("quantity is required")
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity[%s] is not a number: %w", args[1], err)
		}
		return store.UpdateQuantity(ctx, productID, quantity)

	case "remove":
		productID, err := productArg(args, 0)
		if err != nil {
			return err
		}
		return store.RemoveFromCart(ctx, productID)

	case "clear":
		_, err := store.ClearCart(ctx)
		return err

	case "checkout":
		_, err := store.Checkout(ctx)
		return err
	}

	return fmt.Errorf("unknown command %q", command)
}

func printCart(out io.Writer, store *cart.Store) error {
	items := store.Items()
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "cart is empty")
		return err
	}

	for _, item := range items {
		fmt.Fprintf(out, "%s  %-30s  %3d x %s = %s\n",
			item.ProductID, item.Product.Name, item.Quantity, item.Product.Price, item.LineTotal())
	}

	subtotal, err := store.Subtotal()
	if err != nil {
		return fmt.Errorf("store.Subtotal: %w", err)
	}
	_, err = fmt.Fprintf(out, "subtotal: %s (%d items)\n", subtotal, store.Count())
	return err
}

func seedProduct(ctx context.Context, products port.ProductCatalog, args []string, out io.Writer) error {
	if len(args) < 3 {
		return fmt.Errorf("seed needs <name> <price> <currency>")
	}

	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("price[%s] is not a decimal: %w", args[1], err)
	}

	unit, err := currency.ParseISO(args[2])
	if err != nil {
		return fmt.Errorf("currency[%s] is not valid: %w", args[2], err)
	}

	product := domain.Product{
		ID:    uuid.New(),
		Name:  args[0],
		Price: domain.Money{Amount: price, Currency: unit},
	}
	if len(args) > 3 {
		product.ImageURL = args[3]
	}

	if err := products.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	_, err = fmt.Fprintln(out, product.ID)
	return err
}

func issueToken(verifier *session.Verifier, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("token needs <user-id>")
	}

	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("user id[%s] is not a uuid: %w", args[0], err)
	}

	user := domain.User{ID: userID}
	if len(args) > 1 {
		user.Email = args[1]
	}

	token, err := verifier.Issue(user, 24*time.Hour)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

func productArg(args []string, i int) (uuid.UUID, error) {
	if len(args) <= i {
		return uuid.Nil, errors.New("product id is required")
	}

	productID, err := uuid.Parse(args[i])
	if err != nil {
		return uuid.Nil, fmt.Errorf("product id[%s] is not a uuid: %w", args[i], err)
	}
	return productID, nil
}

func logMetrics(log zerolog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("gather metrics")
		return
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			event := log.Debug().Str("metric", family.GetName())
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			if c := m.GetCounter(); c != nil {
				event = event.Float64("value", c.GetValue())
			}
			if h := m.GetHistogram(); h != nil {
				event = event.Uint64("count", h.GetSampleCount()).Float64("sum", h.GetSampleSum())
			}
			event.Msg("gateway metric")
		}
	}
}
