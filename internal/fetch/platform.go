package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board.
type Platform string

const (
	// PlatformGreenhouse is the Greenhouse ATS
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS
	PlatformLever Platform = "lever"
	// PlatformLinkedIn is LinkedIn job pages
	PlatformLinkedIn Platform = "linkedin"
	// PlatformJobStreet is JobStreet/SEEK listings
	PlatformJobStreet Platform = "jobstreet"
	// PlatformGlassdoor is Glassdoor job and salary pages
	PlatformGlassdoor Platform = "glassdoor"
	// PlatformUnknown is an unrecognized site
	PlatformUnknown Platform = "unknown"
)

var platformHosts = []struct {
	fragment string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"linkedin.com", PlatformLinkedIn},
	{"jobstreet.", PlatformJobStreet},
	{"seek.com", PlatformJobStreet},
	{"glassdoor.", PlatformGlassdoor},
}

// DetectPlatform identifies the job board from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Host)
	for _, h := range platformHosts {
		if strings.Contains(host, h.fragment) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns content selectors for a job board.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{".job__description.body", ".job__description", "#content"}
	case PlatformLever:
		return []string{".posting-page", ".posting-description", ".content"}
	case PlatformLinkedIn:
		return []string{".show-more-less-html__markup", ".description__text", "main"}
	case PlatformJobStreet:
		return []string{"[data-automation='jobAdDetails']", "[data-automation='jobDescription']", "main"}
	case PlatformGlassdoor:
		return []string{"[class*='JobDetails_jobDescription']", "#JobDescriptionContainer", "main"}
	default:
		return JobPostingSelectors()
	}
}

// PlatformNoiseSelectors returns elements to strip before extracting text.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		".apply-button-container",
		".eeo-statement",
		".social-share",
		".cookie-consent",
		".gdpr-notice",
	}
	switch platform {
	case PlatformLinkedIn:
		return append(common, ".top-card-layout__cta-container", ".similar-jobs")
	case PlatformJobStreet:
		return append(common, "[data-automation='similarJobs']")
	case PlatformGlassdoor:
		return append(common, "[class*='SimilarJobs']", ".hardsellOverlay")
	default:
		return common
	}
}
