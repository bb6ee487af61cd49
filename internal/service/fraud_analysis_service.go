package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"finguard_backend/internal/config"
	"finguard_backend/internal/util"
	"finguard_backend/pkg/logger"
	"finguard_backend/pkg/monitoring"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	VerdictSafe       = "safe"
	VerdictSuspicious = "suspicious"
	VerdictDangerous  = "dangerous"
)

const urlCacheKey = "fraud:url:%s"

type Finding struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Weight  int    `json:"weight"`
}

type RiskReport struct {
	Input       string       `json:"input"`
	Domain      string       `json:"domain,omitempty"`
	UnicodeHost string       `json:"unicodeHost,omitempty"`
	Score       int          `json:"score"`
	Verdict     string       `json:"verdict"`
	Findings    []Finding    `json:"findings"`
	Links       []RiskReport `json:"links,omitempty"`
	CheckedAt   time.Time    `json:"checkedAt"`
	Cached      bool         `json:"cached"`
	Progression *EventResult `json:"progression,omitempty"`
}

var urlShorteners = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "goo.gl": true, "t.co": true,
	"ow.ly": true, "is.gd": true, "cutt.ly": true, "rb.gy": true,
	"shorturl.at": true, "tiny.cc": true, "rebrand.ly": true,
}

var riskyTLDs = map[string]bool{
	"xyz": true, "top": true, "tk": true, "ml": true, "ga": true, "cf": true,
	"gq": true, "click": true, "link": true, "zip": true, "mov": true,
	"buzz": true, "rest": true, "cam": true, "work": true,
}

// officialDomains 常被仿冒的品牌及其真实注册域名
var officialDomains = map[string][]string{
	"paytm":     {"paytm.com", "paytm.in"},
	"phonepe":   {"phonepe.com"},
	"sbi":       {"sbi.co.in", "onlinesbi.sbi"},
	"hdfc":      {"hdfcbank.com"},
	"icici":     {"icicibank.com"},
	"axisbank":  {"axisbank.com"},
	"amazon":    {"amazon.in", "amazon.com"},
	"flipkart":  {"flipkart.com"},
	"npci":      {"npci.org.in"},
	"incometax": {"incometax.gov.in"},
	"google":    {"google.com", "google.co.in"},
}

var phishingWords = []string{"login", "verify", "kyc", "update", "secure", "account", "reward", "bonus", "free", "unlock", "suspend"}

var messageRules = []struct {
	code     string
	message  string
	weight   int
	keywords []string
}{
	{"otp_request", "Asks for an OTP or verification code", 35, []string{"otp", "one time password", "verification code", "share the code"}},
	{"kyc_threat", "Claims KYC or account details must be updated", 25, []string{"kyc", "pan card", "aadhaar", "aadhar", "account will be blocked", "account blocked", "suspended"}},
	{"prize_bait", "Promises a lottery, prize or cashback", 25, []string{"lottery", "you have won", "you won", "prize", "cashback", "reward points", "lucky draw", "gift card"}},
	{"urgency", "Creates artificial urgency", 15, []string{"urgent", "immediately", "within 24 hours", "last chance", "act now", "expires today"}},
	{"payment_request", "Requests a payment or transfer", 20, []string{"upi pin", "collect request", "transfer", "processing fee", "refund", "pay now", "registration fee"}},
	{"remote_access", "Asks to install remote access apps", 30, []string{"anydesk", "teamviewer", "quicksupport", "screen share"}},
}

var linkPattern = regexp.MustCompile(`(?i)\b((?:https?://|www\.)[^\s<>"']+)`)

type FraudAnalysisService struct {
	Redis       *redis.Client
	CacheTTL    time.Duration
	Progression *ProgressionService
	Now         func() time.Time
}

func NewFraudAnalysisService(rdb *redis.Client, progression *ProgressionService, cfg *config.Config) *FraudAnalysisService {
	return &FraudAnalysisService{
		Redis:       rdb,
		CacheTTL:    time.Duration(cfg.Gamification.URLAnalysisCacheHours) * time.Hour,
		Progression: progression,
		Now:         time.Now,
	}
}

func verdictFor(score int) string {
	switch {
	case score >= 60:
		return VerdictDangerous
	case score >= 30:
		return VerdictSuspicious
	default:
		return VerdictSafe
	}
}

func (r *RiskReport) add(code, message string, weight int) {
	r.Findings = append(r.Findings, Finding{Code: code, Message: message, Weight: weight})
	r.Score += weight
}

func (r *RiskReport) finish() {
	if r.Score > 100 {
		r.Score = 100
	}
	r.Verdict = verdictFor(r.Score)
}

// normalizeURL 补全协议并统一大小写，作为缓存键的输入
func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, util.ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, util.ErrInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u, nil
}

// AnalyzeURL 纯启发式评分，不访问目标站点
func AnalyzeURL(raw string, now time.Time) (*RiskReport, error) {
	u, err := normalizeURL(raw)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	report := &RiskReport{Input: u.String(), Findings: []Finding{}, CheckedAt: now}

	if u.Scheme != "https" {
		report.add("insecure_scheme", "Does not use HTTPS", 15)
	}
	if u.User != nil {
		report.add("userinfo", "Contains '@' credentials that hide the real host", 25)
	}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		report.add("unusual_port", "Uses a non-standard port", 10)
	}
	if len(u.String()) > 100 {
		report.add("long_url", "Unusually long URL", 10)
	}

	if ip := net.ParseIP(host); ip != nil {
		report.add("ip_host", "Uses a raw IP address instead of a domain", 30)
		report.finish()
		return report, nil
	}

	if strings.Contains(host, "xn--") {
		report.add("punycode", "Uses punycode characters that can imitate other domains", 25)
		if unicode, err := idna.ToUnicode(host); err == nil {
			report.UnicodeHost = unicode
		}
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}
	report.Domain = domain

	suffix, _ := publicsuffix.PublicSuffix(host)
	if riskyTLDs[suffix] {
		report.add("risky_tld", "Uses a top-level domain common in scams (."+suffix+")", 15)
	}
	if urlShorteners[domain] {
		report.add("url_shortener", "Shortened link hides the destination", 20)
	}

	sub := strings.TrimSuffix(strings.TrimSuffix(host, domain), ".")
	if sub != "" && strings.Count(sub, ".")+1 >= 3 {
		report.add("many_subdomains", "Has many nested subdomains", 15)
	}
	if strings.Count(domain, "-") >= 2 {
		report.add("hyphenated_domain", "Domain contains several hyphens", 10)
	}

	label := strings.ReplaceAll(host, "-", "")
	for brand, domains := range officialDomains {
		if !strings.Contains(label, brand) {
			continue
		}
		official := false
		for _, d := range domains {
			if domain == d {
				official = true
				break
			}
		}
		if !official {
			report.add("brand_impersonation", "Mentions "+brand+" but is not its official domain", 30)
			break
		}
	}

	lower := strings.ToLower(host + u.EscapedPath())
	for _, w := range phishingWords {
		if strings.Contains(lower, w) {
			report.add("phishing_keywords", "Contains phishing keyword '"+w+"'", 10)
			break
		}
	}

	report.finish()
	return report, nil
}

// AnalyzeMessage 检查短信或聊天消息中的常见诈骗话术及其中的链接
func AnalyzeMessage(text string, now time.Time) *RiskReport {
	report := &RiskReport{Input: text, Findings: []Finding{}, CheckedAt: now}
	lower := strings.ToLower(text)

	for _, rule := range messageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				report.add(rule.code, rule.message, rule.weight)
				break
			}
		}
	}

	worst := 0
	for _, link := range linkPattern.FindAllString(text, 5) {
		link = strings.TrimRight(link, ".,;:!?)")
		lr, err := AnalyzeURL(link, now)
		if err != nil {
			continue
		}
		report.Links = append(report.Links, *lr)
		if lr.Score > worst {
			worst = lr.Score
		}
	}
	if len(report.Links) > 0 {
		report.add("contains_link", "Contains links", 10+worst/2)
	}

	report.finish()
	return report
}

func cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

// CheckURL 带缓存的 URL 检查，并记一次工具使用
func (s *FraudAnalysisService) CheckURL(ctx context.Context, userID uint, raw string) (*RiskReport, error) {
	u, err := normalizeURL(raw)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf(urlCacheKey, cacheKey(u.String()))

	report := s.cachedReport(ctx, key)
	if report == nil {
		report, err = AnalyzeURL(raw, s.Now())
		if err != nil {
			return nil, err
		}
		s.storeReport(ctx, key, report)
	}

	if s.Progression != nil {
		report.Progression = s.Progression.RecordToolUse(ctx, userID, util.ToolURLAnalyzer)
	}
	return report, nil
}

func (s *FraudAnalysisService) CheckMessage(ctx context.Context, userID uint, text string) *RiskReport {
	report := AnalyzeMessage(text, s.Now())
	if s.Progression != nil {
		report.Progression = s.Progression.RecordToolUse(ctx, userID, util.ToolMessageAnalyzer)
	}
	return report
}

func (s *FraudAnalysisService) cachedReport(ctx context.Context, key string) *RiskReport {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return nil
	}
	data, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("URL analysis cache read failed", zap.Error(err))
		}
		monitoring.CacheMiss("url_analysis")
		return nil
	}
	var report RiskReport
	if err := json.Unmarshal(data, &report); err != nil {
		monitoring.CacheMiss("url_analysis")
		return nil
	}
	monitoring.CacheHit("url_analysis")
	report.Cached = true
	return &report
}

func (s *FraudAnalysisService) storeReport(ctx context.Context, key string, report *RiskReport) {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
		logger.Log.Warn("URL analysis cache write failed", zap.Error(err))
	}
}
