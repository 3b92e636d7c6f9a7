// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/hydroline/hydroline-services/internal/platform/apperr"
	"github.com/hydroline/hydroline-services/internal/platform/config"
	"github.com/hydroline/hydroline-services/internal/platform/constants"
	"github.com/hydroline/hydroline-services/internal/platform/ctxutil"
	"github.com/hydroline/hydroline-services/internal/system/audit"
	"github.com/hydroline/hydroline-services/pkg/normalize"
	"github.com/hydroline/hydroline-services/pkg/uuid"
)

// # Provider Registry

// ExternalIdentity is what a provider tells us about the user after a
// successful code exchange.
type ExternalIdentity struct {
	Provider    string
	ProviderID  string
	Email       *string
	DisplayName string

	// EmailVerified allows linking to an existing account by Email.
	EmailVerified bool
}

// Exchanger turns an authorization code into an [ExternalIdentity].
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// ExchangerFactory builds a provider's [Exchanger].
type ExchangerFactory func(oauth *oauth2.Config, profileURL string, client *http.Client) Exchanger

// ProviderDescriptor is the static description of a supported provider.
type ProviderDescriptor struct {
	Key        string
	Name       string
	Endpoint   oauth2.Endpoint
	Scopes     []string
	ProfileURL string

	// NewExchanger is nil for providers whose callback is not implemented.
	NewExchanger ExchangerFactory
}

// Descriptors lists every provider the registry knows about.
func Descriptors() []ProviderDescriptor {
	return []ProviderDescriptor{
		{
			Key:          "microsoft",
			Name:         "Microsoft",
			Endpoint:     microsoft.AzureADEndpoint("common"),
			Scopes:       []string{"openid", "profile", "email", "User.Read"},
			ProfileURL:   "https://graph.microsoft.com/v1.0/me",
			NewExchanger: newMicrosoftExchanger,
		},
		{
			Key:  "qq",
			Name: "QQ",
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://graph.qq.com/oauth2.0/authorize",
				TokenURL: "https://graph.qq.com/oauth2.0/token",
			},
			Scopes: []string{"get_user_info"},
		},
		{
			Key:  "wechat",
			Name: "WeChat",
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://open.weixin.qq.com/connect/qrconnect",
				TokenURL: "https://api.weixin.qq.com/sns/oauth2/access_token",
			},
			Scopes: []string{"snsapi_login"},
		},
		{
			Key:  "discord",
			Name: "Discord",
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
			Scopes: []string{"identify", "email"},
		},
	}
}

// Provider is an enabled, validated OAuth provider.
type Provider struct {
	Key        string
	Name       string
	oauth      *oauth2.Config
	exchanger  Exchanger
	trustEmail bool
}

// AuthorizeURL is where the browser is sent to start the flow.
func (provider *Provider) AuthorizeURL(state string) string {
	return provider.oauth.AuthCodeURL(state)
}

// ProviderInfo is the public listing entry of an enabled provider.
type ProviderInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	LoginURL string `json:"loginUrl"`
}

// ProviderRegistry holds the providers enabled at startup.
type ProviderRegistry struct {
	providers map[string]*Provider
	order     []string
}

// NewEmptyRegistry returns a registry with no providers.
func NewEmptyRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: map[string]*Provider{}}
}

/*
NewProviderRegistry registers every enabled provider from cfg.

Description: Disabled providers are skipped. An enabled provider without a
client id, client secret or callback URL fails startup.

Parameters:
  - cfg: config.OAuthConfig
  - client: *http.Client (used for token and profile calls)

Returns:
  - *ProviderRegistry: Enabled providers
  - error: apperr.Misconfigured naming the provider and missing settings
*/
func NewProviderRegistry(cfg config.OAuthConfig, client *http.Client) (*ProviderRegistry, error) {
	settings := map[string]config.OAuthProviderConfig{
		"microsoft": cfg.Microsoft,
		"qq":        cfg.QQ,
		"wechat":    cfg.WeChat,
		"discord":   cfg.Discord,
	}

	registry := NewEmptyRegistry()
	for _, descriptor := range Descriptors() {
		setting := settings[descriptor.Key]
		if !setting.Enabled {
			continue
		}
		if err := registry.Register(descriptor, setting, client); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Register validates setting and adds the provider.
func (registry *ProviderRegistry) Register(descriptor ProviderDescriptor, setting config.OAuthProviderConfig, client *http.Client) error {
	var missing []string
	if setting.ClientID == "" {
		missing = append(missing, "client id")
	}
	if setting.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if setting.CallbackURL == "" {
		missing = append(missing, "callback URL")
	}
	if len(missing) > 0 {
		return apperr.Misconfigured(fmt.Sprintf("OAuth provider %s is enabled but has no %s", descriptor.Key, strings.Join(missing, ", ")))
	}

	oauth := &oauth2.Config{
		ClientID:     setting.ClientID,
		ClientSecret: setting.ClientSecret,
		Endpoint:     descriptor.Endpoint,
		RedirectURL:  setting.CallbackURL,
		Scopes:       descriptor.Scopes,
	}

	provider := &Provider{Key: descriptor.Key, Name: descriptor.Name, oauth: oauth, trustEmail: setting.TrustEmail}
	if descriptor.NewExchanger != nil {
		provider.exchanger = descriptor.NewExchanger(oauth, descriptor.ProfileURL, client)
	}

	if _, exists := registry.providers[descriptor.Key]; !exists {
		registry.order = append(registry.order, descriptor.Key)
	}
	registry.providers[descriptor.Key] = provider
	return nil
}

// Get returns an enabled provider or FeatureDisabled.
func (registry *ProviderRegistry) Get(key string) (*Provider, error) {
	provider, ok := registry.providers[key]
	if !ok {
		return nil, apperr.FeatureDisabled(fmt.Sprintf("OAuth provider %q is not enabled", key))
	}
	return provider, nil
}

// List describes the enabled providers in registration order.
func (registry *ProviderRegistry) List(basePath string) []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(registry.order))
	for _, key := range registry.order {
		provider := registry.providers[key]
		infos = append(infos, ProviderInfo{
			ID:       provider.Key,
			Name:     provider.Name,
			Enabled:  true,
			LoginURL: basePath + "/" + provider.Key,
		})
	}
	return infos
}

// # Flow

// OAuthFlow drives the redirect and callback legs.
type OAuthFlow struct {
	registry *ProviderRegistry
	states   StateStore
	service  *Service
	stateTTL time.Duration
}

// NewOAuthFlow constructs an [OAuthFlow].
func NewOAuthFlow(registry *ProviderRegistry, states StateStore, service *Service, stateTTL time.Duration) *OAuthFlow {
	return &OAuthFlow{registry: registry, states: states, service: service, stateTTL: stateTTL}
}

// Providers lists the enabled providers.
func (flow *OAuthFlow) Providers(basePath string) []ProviderInfo {
	return flow.registry.List(basePath)
}

/*
Begin stores a fresh state and returns the provider's authorize URL.

Parameters:
  - ctx: context.Context
  - providerKey: string

Returns:
  - string: Authorize URL
  - error: FeatureDisabled or state storage failures
*/
func (flow *OAuthFlow) Begin(ctx context.Context, providerKey string) (string, error) {
	provider, err := flow.registry.Get(providerKey)
	if err != nil {
		return "", err
	}

	state := rand.Text()
	if err := flow.states.Save(ctx, state, provider.Key, flow.stateTTL); err != nil {
		return "", fmt.Errorf("auth_oauth_begin_failed: %w", err)
	}

	return provider.AuthorizeURL(state), nil
}

/*
Complete handles the provider callback.

Description: The state is consumed before anything else so it can never be
replayed. The exchanged identity is logged in, provisioning an account on
first use.

Parameters:
  - ctx: context.Context
  - providerKey: string
  - code: string
  - state: string
  - deviceInfo: string
  - ipAddress: string

Returns:
  - *AuthResult: User view and token pair
  - error: FeatureDisabled, InvalidToken (bad state), ServiceUnavailable (exchange failed)
*/
func (flow *OAuthFlow) Complete(ctx context.Context, providerKey, code, state, deviceInfo, ipAddress string) (*AuthResult, error) {
	provider, err := flow.registry.Get(providerKey)
	if err != nil {
		return nil, err
	}

	issuedFor, err := flow.states.Consume(ctx, state)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.InvalidToken("Invalid or expired OAuth state")
		}
		return nil, fmt.Errorf("auth_oauth_complete_failed: %w", err)
	}
	if issuedFor != provider.Key {
		return nil, apperr.InvalidToken("Invalid or expired OAuth state")
	}

	if provider.exchanger == nil {
		return nil, apperr.FeatureDisabled(fmt.Sprintf("OAuth login with %s is not available yet", provider.Name))
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, constants.OAuthExchangeTimeout)
	defer cancel()

	identity, err := provider.exchanger.Exchange(exchangeCtx, code)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("auth_oauth_exchange_failed", slog.String("provider", provider.Key), slog.Any("error", err))
		unavailable := apperr.ServiceUnavailable("OAuth provider did not accept the login")
		unavailable.Cause = err
		return nil, unavailable
	}
	if provider.trustEmail {
		identity.EmailVerified = true
	}

	return flow.service.LoginWithOAuth(ctx, identity, deviceInfo, ipAddress)
}

/*
LoginWithOAuth logs in the account behind an external identity.

Description: Matches by the "<provider>_<providerId>" username, then by
email when the identity's email is verified. Unmatched identities get a new
password-less account with the default role. An unverified email already
owned by another account is not copied onto the new one.

Parameters:
  - ctx: context.Context
  - identity: *ExternalIdentity
  - deviceInfo: string
  - ipAddress: string

Returns:
  - *AuthResult: User view and token pair
  - error: AccountDisabled, Conflict, or storage errors
*/
func (service *Service) LoginWithOAuth(ctx context.Context, identity *ExternalIdentity, deviceInfo, ipAddress string) (*AuthResult, error) {
	email := normalize.Optional(identity.Email, normalize.Email)
	username := normalize.Username(identity.Provider + "_" + identity.ProviderID)

	user, err := service.findExternal(ctx, username)
	if err != nil {
		return nil, err
	}

	if user == nil && email != nil {
		owner, err := service.findExternalEmail(ctx, *email)
		if err != nil {
			return nil, err
		}
		switch {
		case owner != nil && identity.EmailVerified:
			user = owner
		case owner != nil:
			ctxutil.GetLogger(ctx).Warn("auth_oauth_unverified_email_in_use",
				slog.String("provider", identity.Provider),
				slog.String("user_id", owner.ID),
			)
			email = nil
		}
	}

	if user == nil {
		user = &User{
			ID:          uuid.New(),
			Username:    username,
			Email:       email,
			DisplayName: normalize.Optional(&identity.DisplayName, normalize.Text),
			IsActive:    true,
		}
		if err := service.users.Create(ctx, user, nil, DefaultRole); err != nil {
			if apperr.IsAppError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("auth_service_oauth_provision_failed: %w", err)
		}
		service.record(ctx, &user.ID, audit.ActionRegister, resourceUser, user.ID, ipAddress, deviceInfo,
			map[string]any{"provider": identity.Provider})
	}

	if !user.IsActive {
		return nil, apperr.AccountDisabled()
	}

	service.record(ctx, &user.ID, audit.ActionOAuthLogin, resourceUser, user.ID, ipAddress, deviceInfo,
		map[string]any{"provider": identity.Provider})

	user.PasswordHash = nil
	result, err := service.Login(ctx, user, deviceInfo, ipAddress)
	service.metrics.login(err)
	return result, err
}

func (service *Service) findExternal(ctx context.Context, username string) (*User, error) {
	user, err := service.users.FindByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_oauth_lookup_failed: %w", err)
	}
	return nil, nil
}

func (service *Service) findExternalEmail(ctx context.Context, email string) (*User, error) {
	user, err := service.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_oauth_lookup_failed: %w", err)
	}
	return nil, nil
}

// # Microsoft

type microsoftExchanger struct {
	oauth      *oauth2.Config
	profileURL string
	client     *http.Client
}

func newMicrosoftExchanger(oauth *oauth2.Config, profileURL string, client *http.Client) Exchanger {
	return &microsoftExchanger{oauth: oauth, profileURL: profileURL, client: client}
}

type microsoftProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Exchange redeems the code and reads the Graph /me profile.
func (exchanger *microsoftExchanger) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	if exchanger.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, exchanger.client)
	}

	token, err := exchanger.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("microsoft_token_exchange_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, exchanger.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("microsoft_profile_request_failed: %w", err)
	}

	response, err := exchanger.oauth.Client(ctx, token).Do(request)
	if err != nil {
		return nil, fmt.Errorf("microsoft_profile_request_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("microsoft_profile_request_failed: status %d", response.StatusCode)
	}

	var profile microsoftProfile
	if err := json.NewDecoder(response.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("microsoft_profile_decode_failed: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("microsoft_profile_decode_failed: missing id")
	}

	identity := &ExternalIdentity{
		Provider:    "microsoft",
		ProviderID:  profile.ID,
		DisplayName: profile.DisplayName,
	}

	// Graph does not vouch for these addresses. TrustEmail decides linking.
	switch {
	case profile.Mail != "":
		identity.Email = &profile.Mail
	case strings.Contains(profile.UserPrincipalName, "@"):
		identity.Email = &profile.UserPrincipalName
	}

	return identity, nil
}
