package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/app/prompt"
	"github.com/jose-valero/psforever-bot/internal/domain"
)

const (
	msgSetupTimedOut  = "Signup timed out."
	msgSetupCancelled = "Signup terminated."
	msgSetupFailed    = "An unexpected error occured."
	msgSetupBusy      = "You already have a signup in progress. Reply to the questions above or respond with `exit`."
	msgSetupDone      = "Your subscription is now active! To update your settings, simply run `!alert subscribe` again. " +
		"To remove your subscription, run `!alert unsubscribe`."
)

const timeframeHelp = "Use the 24-hour time format. For example `17:00-22:00` to get notified during the evenings " +
	"or `00:00-24:00` to get notified at any time."

// setupForm acumula las respuestas; la ventana de días hábiles espera a la del fin de semana.
type setupForm struct {
	AlertConfig
	weekday domain.TimeWindow
}

func rejection(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return prompt.Reject(ve.Message)
	}
	return err
}

func alertSteps() []prompt.Step[setupForm] {
	return []prompt.Step[setupForm]{
		{
			Name: "players",
			Prompt: "Welcome to the battle alert subscription setup process. To cancel the setup, respond with `exit` at any point.\n" +
				"At what player threshold do you want to receive a notification? We recommend to keep this fairly low. `10` is a good choice.",
			Validate: func(raw string, acc setupForm) (setupForm, error) {
				n, err := ParsePlayers(raw)
				if err != nil {
					return acc, rejection(err)
				}
				acc.Players = n
				return acc, nil
			},
		},
		{
			Name:   "characters",
			Prompt: "What are your character names? We will not alert you if you are online on any of them. Separate them with spaces.",
			Validate: func(raw string, acc setupForm) (setupForm, error) {
				names, err := ParseCharacters(raw)
				if err != nil {
					return acc, rejection(err)
				}
				acc.Characters = names
				return acc, nil
			},
		},
		{
			Name: "timezone",
			Prompt: "What is your time zone? Accepted values are in the form: `US/Eastern`, `America/New_York`, `Europe/Berlin`. " +
				"For a complete list go to https://en.wikipedia.org/wiki/List_of_tz_database_time_zones",
			Validate: func(raw string, acc setupForm) (setupForm, error) {
				tz, err := ParseTimezone(raw)
				if err != nil {
					return acc, rejection(err)
				}
				acc.Timezone = tz
				return acc, nil
			},
		},
		{
			Name:   "weekday",
			Prompt: "During which time frame do you want to get notified on **weekdays**? " + timeframeHelp,
			Validate: func(raw string, acc setupForm) (setupForm, error) {
				w, err := ParseTimeframe(raw)
				if err != nil {
					return acc, rejection(err)
				}
				acc.weekday = w
				return acc, nil
			},
		},
		{
			Name:   "weekend",
			Prompt: "During which time frame do you want to get notified on **weekends**? " + timeframeHelp,
			Validate: func(raw string, acc setupForm) (setupForm, error) {
				w, err := ParseTimeframe(raw)
				if err != nil {
					return acc, rejection(err)
				}
				acc.Timeframes = domain.WeeklyWindows(acc.weekday, w)
				return acc, nil
			},
		},
	}
}

// AlertSetup conduce el setup de alertas por DM y guarda el resultado en el AlertScheduler.
type AlertSetup struct {
	alerts   *AlertScheduler
	dm       DirectMessenger
	log      zerolog.Logger
	timeout  time.Duration
	sessions *prompt.Registry[setupForm]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAlertSetup(alerts *AlertScheduler, dm DirectMessenger, log zerolog.Logger, timeout time.Duration) *AlertSetup {
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertSetup{
		alerts:   alerts,
		dm:       dm,
		log:      log,
		timeout:  timeout,
		sessions: prompt.NewRegistry[setupForm](),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Begin arranca la conversación en background; devuelve false si ya había una activa.
func (s *AlertSetup) Begin(u User) bool {
	send := func(ctx context.Context, text string) error { return s.dm.SendDM(ctx, u.ID, text) }
	session := prompt.NewSession(alertSteps(), send, s.timeout)
	if !s.sessions.Begin(u.ID, session) {
		if err := s.dm.SendDM(s.ctx, u.ID, msgSetupBusy); err != nil {
			s.log.Debug().Err(err).Str("user", u.Tag).Msg("could not send busy notice")
		}
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sessions.End(u.ID, session)
		s.finish(u, session.Run(s.ctx, setupForm{}))
	}()
	return true
}

// Deliver pasa un DM del usuario a su sesión activa.
func (s *AlertSetup) Deliver(userID, text string) bool {
	return s.sessions.Deliver(userID, text)
}

func (s *AlertSetup) Active(userID string) bool { return s.sessions.Active(userID) }

func (s *AlertSetup) finish(u User, out prompt.Outcome[setupForm]) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	reply := msgSetupFailed
	switch out.Status {
	case prompt.Success:
		if _, err := s.alerts.Subscribe(ctx, u, out.Value.AlertConfig); err != nil {
			s.log.Error().Err(err).Str("user", u.Tag).Msg("could not store alert subscription")
		} else {
			reply = msgSetupDone
		}
	case prompt.TimedOut:
		reply = msgSetupTimedOut
	case prompt.Cancelled:
		reply = msgSetupCancelled
	default:
		if errors.Is(out.Err, context.Canceled) {
			// shutdown: no se avisa
			return
		}
		s.log.Error().Err(out.Err).Str("user", u.Tag).Str("step", out.Step).Msg("error during signup dialog")
	}
	s.log.Info().Str("user", u.Tag).Stringer("status", out.Status).Msg("alert setup finished")
	if err := s.dm.SendDM(ctx, u.ID, reply); err != nil {
		s.log.Warn().Err(err).Str("user", u.Tag).Msg("could not send setup result")
	}
}

// Close cancela las sesiones en curso y espera a que terminen.
func (s *AlertSetup) Close() {
	s.cancel()
	s.wg.Wait()
}
