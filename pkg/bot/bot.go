package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"

	"igunfollow/internal/runner"
	"igunfollow/pkg/config"
	"igunfollow/pkg/logger"
)

// Invoker runs the unfollow command. *runner.Runner implements it.
type Invoker interface {
	Invoke(ctx context.Context, req runner.Request) runner.Outcome
}

// interactionSession is the part of *discordgo.Session the handler needs
type interactionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler answers the unfollow slash command
type Handler struct {
	invoker     Invoker
	commandName string
	logger      logger.Logger
	clock       clockwork.Clock
}

// NewHandler creates a handler for the named command
func NewHandler(invoker Invoker, commandName string, log logger.Logger) *Handler {
	if commandName == "" {
		commandName = "unfollow"
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Handler{
		invoker:     invoker,
		commandName: commandName,
		logger:      log,
		clock:       clockwork.NewRealClock(),
	}
}

// Command is the slash command definition to register
func (h *Handler) Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        h.commandName,
		Description: "Unfollow Instagram users who don't follow you back (24h cooldown)",
	}
}

// Handle answers one interaction. Refusals are answered right away; an
// accepted run is deferred, acknowledged with a processing message and the
// original response is edited with the result once the run ends. All
// responses are only visible to the invoker.
func (h *Handler) Handle(ctx context.Context, s interactionSession, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand || i.ApplicationCommandData().Name != h.commandName {
		return
	}

	userID := interactionUser(i)
	log := h.logger.WithFields(map[string]interface{}{
		"interaction_id": i.ID,
		"user_id":        userID,
	})

	accepted := false
	outcome := h.invoker.Invoke(ctx, runner.Request{
		Invoker: userID,
		OnAccepted: func(runID string) {
			accepted = true
			h.acknowledge(s, i, log.WithField("run_id", runID))
		},
	})

	embed := OutcomeEmbed(outcome, h.clock.Now())

	if !accepted {
		err := s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
				Flags:  discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.WithError(err).Error("Failed to respond to interaction")
		}
		return
	}

	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		// interaction tokens expire after 15 minutes, long runs can outlive them
		log.WithError(err).WarnWithFields("Failed to edit interaction response", map[string]interface{}{
			"status": string(outcome.Status),
		})
	}
}

// acknowledge defers the response and posts the processing message
func (h *Handler) acknowledge(s interactionSession, i *discordgo.Interaction, log logger.Logger) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Failed to defer interaction")
		return
	}

	_, err = s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{ProcessingEmbed()},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send processing message")
	}
}

func interactionUser(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Bot is the Discord gateway connection serving the command
type Bot struct {
	session *discordgo.Session
	handler *Handler
	guildID string
	logger  logger.Logger

	mu         sync.Mutex
	ctx        context.Context
	registered *discordgo.ApplicationCommand
}

// New creates a bot from the Discord config section
func New(cfg config.DiscordConfig, invoker Invoker, log logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is not configured")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session: session,
		handler: NewHandler(invoker, cfg.CommandName, log),
		guildID: cfg.GuildID,
		logger:  log,
		ctx:     context.Background(),
	}
	session.AddHandler(b.onInteraction)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.InfoWithFields("Connected to Discord", map[string]interface{}{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		})
	})

	return b, nil
}

// Start connects to the gateway and registers the slash command. Runs
// started by the bot use ctx, so cancelling it interrupts them.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	cmd, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.guildID, b.handler.Command())
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("failed to register /%s command: %w", b.handler.commandName, err)
	}

	b.mu.Lock()
	b.registered = cmd
	b.mu.Unlock()

	b.logger.InfoWithFields("Registered slash command", map[string]interface{}{
		"command":  cmd.Name,
		"guild_id": b.guildID,
	})
	return nil
}

// Stop unregisters guild commands and closes the gateway connection.
// Global commands are kept since they take a while to propagate.
func (b *Bot) Stop() error {
	b.mu.Lock()
	cmd := b.registered
	b.registered = nil
	b.mu.Unlock()

	if cmd != nil && b.guildID != "" {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.guildID, cmd.ID); err != nil {
			b.logger.WithError(err).Warn("Failed to remove slash command")
		}
	}
	return b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	b.handler.Handle(ctx, s, ic.Interaction)
}
