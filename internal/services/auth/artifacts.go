// -----------------------------------------------------------------------
// Authentication Session - failure artifact capture
// -----------------------------------------------------------------------

package auth

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

const artifactTimestampLayout = "20060102-150405"

// captureArtifacts grabs a full-page screenshot and the final HTML into a
// per-run directory under baseDir. Best-effort: a capture failure is
// logged and never changes the run outcome. Returns the directory path,
// or "" when nothing could be written.
func captureArtifacts(browserCtx context.Context, baseDir, accountID string, logger arbor.ILogger) string {
	if baseDir == "" {
		return ""
	}

	dir := filepath.Join(baseDir, accountID+"_"+time.Now().Format(artifactTimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to create artifact directory")
		return ""
	}

	captureCtx, cancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancel()

	wrote := false

	var screenshot []byte
	if err := chromedp.Run(captureCtx, chromedp.FullScreenshot(&screenshot, 90)); err != nil {
		logger.Warn().Err(err).Str("account_id", accountID).Msg("Failed to capture failure screenshot")
	} else if err := os.WriteFile(filepath.Join(dir, "screenshot.png"), screenshot, 0o644); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to write failure screenshot")
	} else {
		wrote = true
	}

	var pageHTML string
	if err := chromedp.Run(captureCtx, chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery)); err != nil {
		logger.Warn().Err(err).Str("account_id", accountID).Msg("Failed to capture final page HTML")
	} else if err := os.WriteFile(filepath.Join(dir, "page.html"), []byte(pageHTML), 0o644); err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to write final page HTML")
	} else {
		wrote = true
	}

	if !wrote {
		os.Remove(dir)
		return ""
	}
	return dir
}
