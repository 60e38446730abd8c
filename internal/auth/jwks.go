package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const jwksTimeout = 10 * time.Second

var errMissingKid = errors.New("token header has no kid")

// KeySet is the identity provider's published signing keys. The set is
// fetched on first use and kept until the process exits; a failed fetch is
// not remembered. Unknown key ids never trigger a refetch.
type KeySet struct {
	url        string
	httpClient *http.Client

	mu    sync.RWMutex
	kf    keyfunc.Keyfunc
	fetch singleflight.Group
}

func NewKeySet(url string, httpClient *http.Client) *KeySet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: jwksTimeout}
	}
	return &KeySet{url: url, httpClient: httpClient}
}

// Keyfunc resolves token signing keys for jwt.Parse.
func (k *KeySet) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid == "" {
			return nil, errMissingKid
		}
		kf, err := k.load(ctx)
		if err != nil {
			return nil, err
		}
		return kf.KeyfuncCtx(ctx)(t)
	}
}

// Key returns the RSA public key for kid.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	kf, err := k.load(ctx)
	if err != nil {
		return nil, err
	}
	jwk, err := kf.Storage().KeyRead(ctx, kid)
	if err != nil {
		return nil, err
	}
	pub, ok := jwk.Key().(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwk %q is %T, not an RSA public key", kid, jwk.Key())
	}
	return pub, nil
}

// load shares one fetch between concurrent callers. The fetch runs detached
// from any single caller's cancellation; each caller only stops waiting when
// its own ctx ends.
func (k *KeySet) load(ctx context.Context) (keyfunc.Keyfunc, error) {
	k.mu.RLock()
	kf := k.kf
	k.mu.RUnlock()
	if kf != nil {
		return kf, nil
	}

	ch := k.fetch.DoChan("jwks", func() (any, error) {
		k.mu.RLock()
		cached := k.kf
		k.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		fetched, err := k.fetchKeys(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.kf = fetched
		k.mu.Unlock()
		return fetched, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(keyfunc.Keyfunc), nil
	}
}

func (k *KeySet) fetchKeys(ctx context.Context) (keyfunc.Keyfunc, error) {
	if k.url == "" {
		return nil, errors.New("jwks url not configured")
	}
	// No RefreshInterval: the set is requested once, before this returns.
	storage, err := jwkset.NewStorageFromHTTP(k.url, jwkset.HTTPClientStorageOptions{
		Client:      k.httpClient,
		Ctx:         ctx,
		HTTPTimeout: jwksTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	return keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
}
