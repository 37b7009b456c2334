package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/obentoo/aptaudit/internal/apt"
	"github.com/obentoo/aptaudit/internal/assess"
	"github.com/obentoo/aptaudit/internal/audit"
	"github.com/obentoo/aptaudit/internal/common/config"
	"github.com/obentoo/aptaudit/internal/common/credentials"
	"github.com/obentoo/aptaudit/internal/common/logger"
	"github.com/obentoo/aptaudit/internal/common/output"
	"github.com/obentoo/aptaudit/internal/common/system"
	"github.com/obentoo/aptaudit/internal/delivery"
	"github.com/obentoo/aptaudit/internal/model"
	"github.com/obentoo/aptaudit/internal/policy"
	"github.com/obentoo/aptaudit/internal/report"
	"github.com/spf13/cobra"
)

var (
	// auditInstalledFile replaces `apt list --installed`
	auditInstalledFile string
	// auditUpgradableFile replaces `apt list --upgradable`
	auditUpgradableFile string
	auditFormat         string
	auditOutput         string
	auditDeliver        string
	// auditNoEmail is the short form of --deliver file
	auditNoEmail   bool
	auditRecipient string
	auditTransport string
	auditLLM       string
	auditModel     string
	auditOpenAIKey string
	// auditOpenLLMURL and auditOpenLLMKey configure a self-hosted OpenAI-compatible server
	auditOpenLLMURL  string
	auditOpenLLMKey  string
	auditTimeout     time.Duration
	auditPolicy      string
	auditNoChangelog bool
	auditNoConfig    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Assess pending upgrades and deliver a report",
	Long: `Compare installed packages with their pending upgrades, ask the configured
language model whether each upgrade is safe, and deliver the verdicts.

Listings come from apt unless --installed-file and --upgradable-file point at
saved "apt list" output. Backend failures never abort the run: the affected
packages are reported with an unknown verdict.

Examples:
  aptaudit audit                                 Mail a Markdown report to root
  aptaudit audit --no-email --format html        Save upgrade_report.html
  aptaudit audit --deliver both --output /var/lib/aptaudit/report.md
  aptaudit audit --llm openllm --openllm-url http://gpu01:3000
  aptaudit audit --llm none --no-email           Report without assessment`,
	Args: cobra.NoArgs,
	Run:  runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditInstalledFile, "installed-file", "", "Read installed packages from a file")
	f.StringVar(&auditUpgradableFile, "upgradable-file", "", "Read upgradable packages from a file")
	f.StringVar(&auditFormat, "format", "", "Report format: md or html")
	f.StringVarP(&auditOutput, "output", "o", "", "Report file (default upgrade_report.<ext>)")
	f.StringVar(&auditDeliver, "deliver", "", "Delivery target: file, mail or both")
	f.BoolVar(&auditNoEmail, "no-email", false, "Save the report instead of mailing it")
	f.StringVar(&auditRecipient, "recipient", "", "Comma-separated mail recipients")
	f.StringVar(&auditTransport, "transport", "", "Mail transport: sendmail or smtp")
	f.StringVar(&auditLLM, "llm", "", "Backend: "+strings.Join(assess.Providers(), ", "))
	f.StringVar(&auditModel, "model", "", "Backend model (default per provider)")
	f.StringVar(&auditOpenAIKey, "openai-key", "", "OpenAI API key")
	f.StringVar(&auditOpenLLMURL, "openllm-url", "", "OpenLLM server URL")
	f.StringVar(&auditOpenLLMKey, "openllm-key", "", "OpenLLM API key")
	f.DurationVar(&auditTimeout, "timeout", 0, "Per-request backend timeout (default 30s)")
	f.StringVar(&auditPolicy, "policy", "", "Audit policy file (default "+policy.DefaultPath+")")
	f.BoolVar(&auditNoChangelog, "no-changelog", false, "Do not fetch changelogs with apt-get")
	f.BoolVar(&auditNoConfig, "no-config-lookup", false, "Do not attach package configuration to prompts")

	auditCmd.RegisterFlagCompletionFunc("llm", cobra.FixedCompletions(assess.Providers(), cobra.ShellCompDirectiveNoFileComp))
	auditCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{"md", "html"}, cobra.ShellCompDirectiveNoFileComp))
	auditCmd.RegisterFlagCompletionFunc("deliver", cobra.FixedCompletions([]string{"file", "mail", "both"}, cobra.ShellCompDirectiveNoFileComp))
	auditCmd.MarkFlagsMutuallyExclusive("no-email", "deliver")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	format, err := report.ParseFormat(firstNonEmpty(auditFormat, cfg.Report.GetFormat()))
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	target, err := delivery.ParseTarget(firstNonEmpty(auditDeliver, cfg.Report.GetDeliver()))
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	if auditNoEmail {
		target = delivery.TargetFile
	}

	provider, err := newProvider(cfg.LLM)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Debug("backend: %s %s", provider.Name(), provider.GetModel())

	pol, err := policy.Load(firstNonEmpty(auditPolicy, cfg.Policy.Path, policy.DefaultPath))
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	exec := system.NewRunner()

	var changelogs *apt.ChangelogFetcher
	if !auditNoChangelog {
		changelogs = apt.NewChangelogFetcher(exec, cfg.Policy.ChangelogLimit)
	}
	var configs *apt.ConfigLocator
	if !auditNoConfig {
		configs = apt.NewConfigLocator(cfg.Policy.ConfigRoots...)
	}
	builder := audit.NewContextBuilder(changelogs, configs, pol)

	timeout := cfg.LLM.GetTimeout()
	if auditTimeout > 0 {
		timeout = auditTimeout
	}
	assessor := assess.NewAssessor(provider,
		assess.WithRateLimiter(assess.NewRateLimiter(cfg.LLM.GetRequestsPerMinute())),
		assess.WithTimeout(timeout),
		assess.WithContextFunc(builder.Build),
	)

	outputPath := firstNonEmpty(auditOutput, cfg.Report.Output, report.DefaultOutput(format))
	dispatcher := delivery.NewDispatcher(target, outputPath,
		delivery.WithMailer(newMailer(cfg.Mail, exec)),
		delivery.WithEnvelope(delivery.Envelope{
			From:    cfg.Mail.GetFrom(),
			To:      splitRecipients(firstNonEmpty(auditRecipient, cfg.Mail.GetRecipient())),
			Subject: cfg.Mail.GetSubject(host),
			HTML:    format == model.FormatHTML,
		}),
	)

	runner := audit.NewRunner(apt.NewCollector(exec), assessor, dispatcher, audit.WithPolicy(pol))

	res, err := runner.Run(cmd.Context(), audit.Options{
		InstalledFile:  auditInstalledFile,
		UpgradableFile: auditUpgradableFile,
		Format:         format,
		Host:           host,
	})
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	printAuditResult(res)
}

// newProvider resolves the backend and its credentials from flags, environment, keyring and config
func newProvider(cfg config.LLMConfig) (assess.Provider, error) {
	name := firstNonEmpty(auditLLM, cfg.GetProvider())

	llm := assess.LLMConfig{
		Provider:   name,
		Model:      firstNonEmpty(auditModel, cfg.Model),
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.GetTimeout(),
		MaxRetries: cfg.GetMaxRetries(),
		MaxTokens:  cfg.GetMaxTokens(),
	}
	if auditTimeout > 0 {
		llm.Timeout = auditTimeout
	}

	var flagKey string
	switch name {
	case assess.ProviderOpenAI:
		flagKey = auditOpenAIKey
	case assess.ProviderOpenLLM:
		flagKey = auditOpenLLMKey
		llm.BaseURL = firstNonEmpty(auditOpenLLMURL, cfg.BaseURL)
	case assess.ProviderNone:
		return assess.NewProvider(llm)
	}

	key, source := credentials.Resolve(name, flagKey, cfg.APIKeyEnv)
	if source != credentials.SourceNone {
		logger.Debug("%s key from %s", name, source)
	}
	llm.APIKey = key

	return assess.NewProvider(llm)
}

// newMailer selects the configured mail transport
func newMailer(cfg config.MailConfig, exec system.Executor) delivery.Mailer {
	if firstNonEmpty(auditTransport, cfg.Transport) == "smtp" {
		password, _ := credentials.Resolve("smtp", "", cfg.SMTPPasswordEnv)
		return delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.GetSMTPPort(),
			Username: cfg.SMTPUser,
			Password: password,
		})
	}
	return delivery.NewSendmailMailer(exec, cfg.GetSendmailPath())
}

func printAuditResult(res *audit.Result) {
	if quiet {
		return
	}

	for _, c := range res.Report.Candidates {
		fmt.Println(output.FormatCandidate(c))
	}
	if len(res.Report.Candidates) > 0 {
		fmt.Println()
	}
	output.PrintSummary(os.Stdout, res.Report.Summary())

	if res.Failures > 0 {
		output.PrintWarning("%d of %d assessments failed", res.Failures, res.Candidates)
	}
	if res.Outcome.Mailed {
		output.PrintSuccess("Report mailed")
	}
	if res.Outcome.SavedPath != "" {
		output.PrintSuccess("Report saved to %s", res.Outcome.SavedPath)
	}
}

// splitRecipients splits a comma-separated address list
func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure the pipeline accepts the concrete stages
var (
	_ audit.ListingLoader     = (*apt.Collector)(nil)
	_ audit.CandidateAssessor = (*assess.Assessor)(nil)
	_ audit.Deliverer         = (*delivery.Dispatcher)(nil)
)
