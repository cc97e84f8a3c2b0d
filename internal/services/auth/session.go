// -----------------------------------------------------------------------
// Authentication Session - browser-driven login state machine
// -----------------------------------------------------------------------

package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aditus/internal/common"
	"github.com/ternarybob/aditus/internal/models"
)

// Service drives one chromedp browser session per authentication attempt
// through the broker login flow: navigate, fill credentials, supply the
// one-time code (before or after an intermediate submit, whichever the
// form asks for), then verify the outcome from the final URL and page
// content. The browser is torn down on every exit path.
type Service struct {
	browser   common.BrowserConfig
	verify    common.VerifyConfig
	artifacts common.ArtifactsConfig
	secrets   *common.SecretBox
	logger    arbor.ILogger
}

// NewService creates the authenticator.
func NewService(cfg *common.Config, secrets *common.SecretBox, logger arbor.ILogger) *Service {
	return &Service{
		browser:   cfg.Browser,
		verify:    cfg.Verify,
		artifacts: cfg.Artifacts,
		secrets:   secrets,
		logger:    logger,
	}
}

// Authenticate runs the full login flow for one account. Taxonomy failures
// (field not found, invalid secret, verification failed, navigation
// timeout) are returned as a fail-status result with a descriptive
// message, not as an error: the caller records them as a failed run.
func (s *Service) Authenticate(ctx context.Context, account *models.Account, headful bool) (*models.AuthResult, error) {
	logger := s.logger

	password, err := s.secrets.Open(account.PasswordSealed)
	if err != nil {
		logger.Warn().Err(err).Str("account", account.Name).Msg("Failed to unseal account password")
		return failResult((&InvalidSecretError{Reason: "password could not be decrypted"}).Error(), "", ""), nil
	}

	secondFactor, err := s.secrets.Open(account.SecondFactorSealed)
	if err != nil {
		logger.Warn().Err(err).Str("account", account.Name).Msg("Failed to unseal account second factor")
		return failResult((&InvalidSecretError{Reason: "second factor could not be decrypted"}).Error(), "", ""), nil
	}

	gen, err := NewCodeGenerator(account.SecondFactorKind, secondFactor)
	if err != nil {
		logger.Warn().Err(err).Str("account", account.Name).Msg("Second factor rejected before browser start")
		return failResult(err.Error(), "", ""), nil
	}

	headless := s.browser.Headless && !headful

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", s.browser.DisableGPU),
		chromedp.Flag("no-sandbox", s.browser.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if s.browser.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(s.browser.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	started := time.Now()
	logger.Info().
		Str("account", account.Name).
		Str("login_url", account.LoginURL).
		Bool("headless", headless).
		Msg("Starting login session")

	finalURL, flowErr := s.runFlow(browserCtx, account, password, gen, logger)
	if flowErr != nil {
		logger.Warn().
			Err(flowErr).
			Str("account", account.Name).
			Str("final_url", finalURL).
			Dur("elapsed", time.Since(started)).
			Msg("Login session failed")
		artifactDir := captureArtifacts(browserCtx, s.artifacts.Dir, account.ID, logger)
		return failResult(flowErr.Error(), finalURL, artifactDir), nil
	}

	tokenIssued := sessionCookiePresent(browserCtx)

	logger.Info().
		Str("account", account.Name).
		Str("final_url", finalURL).
		Bool("token_issued", tokenIssued).
		Dur("elapsed", time.Since(started)).
		Msg("Login session succeeded")

	message := "authentication token issued"
	if !tokenIssued {
		message = "login verified but no session cookie observed"
	}

	return &models.AuthResult{
		Status:      models.RunStatusSuccess,
		Message:     message,
		TokenIssued: tokenIssued,
		FinalURL:    finalURL,
	}, nil
}

// sessionCookiePresent reports whether the browser holds at least one
// cookie after the flow completed. Brokers issue the session token as a
// cookie, so an empty jar after a verified login is worth surfacing.
func sessionCookiePresent(browserCtx context.Context) bool {
	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	return err == nil && len(cookies) > 0
}

// runFlow executes the state machine against an open browser context and
// returns the final URL reached, if any.
func (s *Service) runFlow(browserCtx context.Context, account *models.Account, password string, gen *CodeGenerator, logger arbor.ILogger) (string, error) {
	resolver := NewResolver(account.SelectorOverrides)
	settle := s.browser.SettleDelayDuration()

	// Navigate. Redirect chains settle before the first field lookup.
	navCtx, navCancel := context.WithTimeout(browserCtx, s.browser.NavTimeoutDuration())
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(account.LoginURL)); err != nil {
		return "", &NavigationTimeoutError{URL: account.LoginURL, Err: err}
	}
	if err := chromedp.Run(browserCtx, chromedp.Sleep(settle)); err != nil {
		return "", &NavigationTimeoutError{URL: account.LoginURL, Err: err}
	}

	// Username: the first visible plain text input is a reliable shortcut
	// on most broker pages, so it leads the resolved chain.
	usernameChain := append(
		[]LocationStrategy{{Kind: StrategyCSS, Query: "input[type='text'], input:not([type])"}},
		resolver.Chain(RoleUsername)...,
	)
	if err := s.fillField(browserCtx, usernameChain, account.Username, RoleUsername, logger); err != nil {
		return "", err
	}

	if err := s.fillField(browserCtx, resolver.Chain(RolePassword), password, RolePassword, logger); err != nil {
		return "", err
	}

	// Single-step forms show the code field alongside the credentials.
	codeFilled := false
	if _, visible := s.probeField(browserCtx, resolver.Chain(RoleCode)); visible {
		code, err := gen.Current()
		if err != nil {
			return "", err
		}
		if err := s.fillField(browserCtx, resolver.Chain(RoleCode), code, RoleCode, logger); err != nil {
			return "", err
		}
		codeFilled = true
		logger.Debug().Msg("Code field visible before submit, single-step flow")
	}

	if err := s.clickSubmit(browserCtx, resolver.Chain(RoleSubmit), logger); err != nil {
		return "", err
	}
	if err := chromedp.Run(browserCtx, chromedp.Sleep(settle)); err != nil {
		return "", &NavigationTimeoutError{URL: account.LoginURL, Err: err}
	}

	// Two-step forms reveal the code field only after the first submit.
	if !codeFilled {
		if _, visible := s.probeField(browserCtx, resolver.Chain(RoleCode)); visible {
			logger.Debug().Msg("Code field appeared after submit, two-step flow")
			code, err := gen.Current()
			if err != nil {
				return "", err
			}
			if err := s.fillField(browserCtx, resolver.Chain(RoleCode), code, RoleCode, logger); err != nil {
				return "", err
			}
			if err := s.clickSubmit(browserCtx, resolver.Chain(RoleSubmit), logger); err != nil {
				return "", err
			}
			if err := chromedp.Run(browserCtx, chromedp.Sleep(settle)); err != nil {
				return "", &NavigationTimeoutError{URL: account.LoginURL, Err: err}
			}
		}
	}

	// Outcome: let the post-submit redirects quiesce, then read where we
	// ended up and what the page says.
	var finalURL, pageHTML string
	outcomeCtx, outcomeCancel := context.WithTimeout(browserCtx, s.browser.NavTimeoutDuration())
	defer outcomeCancel()
	err := chromedp.Run(outcomeCtx,
		chromedp.Sleep(s.browser.QuiescenceWaitDuration()),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return finalURL, &NavigationTimeoutError{URL: account.LoginURL, Err: err}
	}

	if !verifyOutcome(finalURL, pageHTML, s.verify.ProductHost, s.verify.SuccessKeywords) {
		return finalURL, &VerificationFailedError{FinalURL: finalURL}
	}
	return finalURL, nil
}

// fillField tries each strategy in order and types the value into the
// first visibly matching element. Exhaustion is fatal for the role.
func (s *Service) fillField(browserCtx context.Context, chain []LocationStrategy, value string, role Role, logger arbor.ILogger) error {
	for _, strategy := range chain {
		query, opt := strategy.queryOption()
		stepCtx, cancel := context.WithTimeout(browserCtx, s.browser.StepTimeoutDuration())
		err := chromedp.Run(stepCtx,
			chromedp.WaitVisible(query, opt),
			chromedp.Clear(query, opt),
			chromedp.SendKeys(query, value, opt),
		)
		cancel()
		if err == nil {
			logger.Debug().Str("role", string(role)).Str("strategy", strategy.String()).Msg("Field filled")
			return nil
		}
		if !isStepTimeout(err) {
			logger.Debug().Err(err).Str("role", string(role)).Str("strategy", strategy.String()).Msg("Strategy failed, trying next")
		}
	}
	return &FieldNotFoundError{Role: role}
}

// probeField checks whether any strategy in the chain matches a visible
// element right now. Absence is a normal answer, not an error.
func (s *Service) probeField(browserCtx context.Context, chain []LocationStrategy) (LocationStrategy, bool) {
	probeTimeout := s.browser.StepTimeoutDuration() / 2
	if probeTimeout < time.Second {
		probeTimeout = time.Second
	}
	for _, strategy := range chain {
		query, opt := strategy.queryOption()
		stepCtx, cancel := context.WithTimeout(browserCtx, probeTimeout)
		err := chromedp.Run(stepCtx, chromedp.WaitVisible(query, opt))
		cancel()
		if err == nil {
			return strategy, true
		}
	}
	return LocationStrategy{}, false
}

func (s *Service) clickSubmit(browserCtx context.Context, chain []LocationStrategy, logger arbor.ILogger) error {
	for _, strategy := range chain {
		query, opt := strategy.queryOption()
		stepCtx, cancel := context.WithTimeout(browserCtx, s.browser.StepTimeoutDuration())
		err := chromedp.Run(stepCtx,
			chromedp.WaitVisible(query, opt),
			chromedp.Click(query, opt),
		)
		cancel()
		if err == nil {
			logger.Debug().Str("strategy", strategy.String()).Msg("Submit clicked")
			return nil
		}
	}
	return &SubmitNotFoundError{}
}

func (s LocationStrategy) queryOption() (string, chromedp.QueryOption) {
	if s.Kind == StrategyCSS {
		return s.Query, chromedp.ByQuery
	}
	return s.XPathQuery(), chromedp.BySearch
}

// verifyOutcome decides whether the flow ended logged-in: either the final
// URL points back at the product's own host, or the page contains one of
// the configured success keywords. Keyword matching is a case-insensitive
// substring check against the rendered text and, failing that, the raw
// markup.
func verifyOutcome(finalURL, pageHTML, productHost string, keywords []string) bool {
	if productHost != "" && finalURL != "" {
		if parsed, err := url.Parse(finalURL); err == nil {
			host := strings.ToLower(parsed.Hostname())
			want := strings.ToLower(productHost)
			if host == want || strings.HasSuffix(host, "."+want) {
				return true
			}
		}
	}

	haystacks := []string{strings.ToLower(pageHTML)}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML)); err == nil {
		haystacks = append(haystacks, strings.ToLower(doc.Text()))
	}
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		needle := strings.ToLower(keyword)
		for _, haystack := range haystacks {
			if strings.Contains(haystack, needle) {
				return true
			}
		}
	}
	return false
}

func failResult(message, finalURL, artifactDir string) *models.AuthResult {
	return &models.AuthResult{
		Status:      models.RunStatusFail,
		Message:     message,
		FinalURL:    finalURL,
		ArtifactDir: artifactDir,
	}
}

func isStepTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
