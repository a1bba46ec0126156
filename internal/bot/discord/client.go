// Package discord binds brrbot to Discord through the HTTP interactions endpoint and the
// REST API.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/brrbot/brrbot/internal/bot/dispatch"
	"github.com/brrbot/brrbot/internal/bot/permission"
	"github.com/brrbot/brrbot/internal/common/httpclient"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ClientOptions configures a Client.
type ClientOptions struct {
	APIURL        string
	Token         string
	ApplicationID string
	Timeout       time.Duration
	// RequestsPerSecond bounds outgoing requests; 0 selects DefaultRequestsPerSecond.
	RequestsPerSecond float64
	// RetryAttempts and RetryDelay control command registration retries.
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Client defaults.
const (
	DefaultRequestsPerSecond = 20
	DefaultRetryAttempts     = 5
	DefaultRetryDelay        = time.Second
)

// credentials implements httpclient.Configurator for bot authentication.
type credentials struct {
	apiURL string
	token  string
}

func (c *credentials) GetServerURL() string    { return c.apiURL }
func (c *credentials) GetToken() string        { return "" }
func (c *credentials) GetAPIKey() string       { return "Bot " + c.token }
func (c *credentials) GetAPIKeyHeader() string { return "Authorization" }

// Client calls the Discord REST API on behalf of the application.
type Client struct {
	http          httpclient.HTTPClientInterface
	applicationID string
	retryAttempts uint
	retryDelay    time.Duration
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		http: httpclient.NewClient(&credentials{apiURL: opts.APIURL, token: opts.Token}, httpclient.ClientOptions{
			Timeout:     opts.Timeout,
			RateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
			UserAgent:   "DiscordBot (https://github.com/brrbot/brrbot, 1.0)",
		}),
		applicationID: opts.ApplicationID,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
	}
	if c.retryAttempts == 0 {
		c.retryAttempts = DefaultRetryAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	return c
}

// EditOriginalResponse replaces the deferred reply of the interaction identified by token.
func (c *Client) EditOriginalResponse(ctx context.Context, token string, result *dispatch.Result) error {
	body, err := json.Marshal(renderEdit(result))
	if err != nil {
		return ErrEditReply.Err(err)
	}
	path := fmt.Sprintf("/webhooks/%s/%s/messages/@original", c.applicationID, token)
	if _, err := c.http.Patch(ctx, path, body); err != nil {
		return ErrEditReply.Err(err)
	}
	return nil
}

// Guild fetches a guild.
func (c *Client) Guild(ctx context.Context, guildID string) (*Guild, error) {
	body, err := c.http.Get(ctx, "/guilds/"+guildID, nil)
	if err != nil {
		return nil, err
	}
	g := &Guild{}
	if err := json.Unmarshal(body, g); err != nil {
		return nil, fmt.Errorf("decoding guild: %w", err)
	}
	return g, nil
}

// GuildRoles lists the roles of a guild.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]Role, error) {
	body, err := c.http.Get(ctx, "/guilds/"+guildID+"/roles", nil)
	if err != nil {
		return nil, err
	}
	var roles []Role
	if err := json.Unmarshal(body, &roles); err != nil {
		return nil, fmt.Errorf("decoding roles: %w", err)
	}
	return roles, nil
}

func hasPermission(bits string, perm int64) bool {
	v, err := strconv.ParseInt(bits, 10, 64)
	if err != nil {
		return false
	}
	return v&perm != 0
}

// ResolveMembership derives the caller's permission context from the invoking member and
// the guild's current owner and roles. Nothing is cached. A nil member, as in direct
// messages, yields a nil membership.
func (c *Client) ResolveMembership(ctx context.Context, guildID string, member *Member) (*permission.Membership, error) {
	if guildID == "" || member == nil || member.User == nil {
		return nil, nil
	}
	m := &permission.Membership{
		UserID:  member.User.ID,
		IsAdmin: hasPermission(member.Permissions, permission.PermissionAdministrator),
	}

	guild, err := c.Guild(ctx, guildID)
	if err != nil {
		return nil, ErrGuildLookup.Err(err)
	}
	m.IsOwner = guild.OwnerID != "" && guild.OwnerID == member.User.ID

	if len(member.Roles) == 0 {
		return m, nil
	}
	roles, err := c.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, ErrGuildLookup.Err(err)
	}
	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := held[r.ID]; !ok {
			continue
		}
		m.RoleNames = append(m.RoleNames, r.Name)
		if hasPermission(r.Permissions, permission.PermissionAdministrator) {
			m.IsAdmin = true
		}
	}
	return m, nil
}

// CommandDefinitions converts the command table into Discord's registration format.
func CommandDefinitions(cmds []dispatch.Command) []ApplicationCommand {
	dmAllowed := false
	out := make([]ApplicationCommand, 0, len(cmds))
	for _, cmd := range cmds {
		perms := strconv.FormatInt(cmd.Tier.DefaultMemberPermissions(), 10)
		ac := ApplicationCommand{
			Name:                     cmd.Name,
			Description:              cmd.Description,
			DefaultMemberPermissions: &perms,
			DMPermission:             &dmAllowed,
		}
		for _, opt := range cmd.Options {
			optType := OptionTypeString
			if opt.Type == dispatch.OptionInteger {
				optType = OptionTypeInteger
			}
			ac.Options = append(ac.Options, ApplicationCommandOption{
				Type:        optType,
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
				MinValue:    opt.MinValue,
				MaxValue:    opt.MaxValue,
			})
		}
		out = append(out, ac)
	}
	return out
}

// retryable reports whether a registration failure may succeed when repeated.
func retryable(err error) bool {
	code := httpclient.StatusCode(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// RegisterCommands replaces the application's command set, in one guild when guildID is
// set and globally otherwise. Transient failures are retried with backoff.
func (c *Client) RegisterCommands(ctx context.Context, guildID string, cmds []dispatch.Command) ([]ApplicationCommand, error) {
	body, err := json.Marshal(CommandDefinitions(cmds))
	if err != nil {
		return nil, ErrRegistration.Err(err)
	}
	path := fmt.Sprintf("/applications/%s/commands", c.applicationID)
	if guildID != "" {
		path = fmt.Sprintf("/applications/%s/guilds/%s/commands", c.applicationID, guildID)
	}

	var rsp []byte
	err = retry.Do(func() error {
		rsp, err = c.http.Put(ctx, path, body)
		return err
	}, retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("failed to register commands")
		}))
	if err != nil {
		return nil, ErrRegistration.Err(err)
	}

	var registered []ApplicationCommand
	if err := json.Unmarshal(rsp, &registered); err != nil {
		return nil, ErrRegistration.Err(err)
	}
	log.Ctx(ctx).Info().Int("count", len(registered)).Str("guild_id", guildID).Msg("registered slash commands")
	return registered, nil
}
