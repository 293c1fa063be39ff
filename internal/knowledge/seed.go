package knowledge

// Built-in source names. Uploaded datasets use their own names and must not
// collide with these.
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// Seed loads the built-in support knowledge into the store and returns the
// number of entries added. Safe to call more than once; Add deduplicates.
func Seed(s *Store) int {
	added := s.Add(internalSeed(), SourceInternal)
	added += s.Add(externalSeed(), SourceExternal)
	return added
}

// internalSeed holds curated entries from the internal support dataset.
func internalSeed() []Pair {
	return []Pair{
		{
			Input:  "What's the progress on ticket number 4579?",
			Output: "This ticket is currently assigned to our L1 support engineer, who is actively working on it. If you have any questions or need further assistance in the meantime, feel free to reach out. We'll keep you updated on the progress.",
		},
		{
			Input:  "I can't receive emails",
			Output: "I'll help you troubleshoot email issues. Let me assign this to our L1 Resolver Group for immediate assistance.",
		},
	}
}

// externalSeed holds general customer support scenarios.
func externalSeed() []Pair {
	return []Pair{
		{
			Input:  "I can't log into my account",
			Output: "I'll help you with login issues. Please try resetting your password using the 'Forgot Password' link on the login page. If that doesn't work, I can help you verify your account details.",
		},
		{
			Input:  "How do I cancel my subscription?",
			Output: "You can cancel your subscription by going to Account Settings > Billing > Cancel Subscription. Would you like me to guide you through this process step by step?",
		},
		{
			Input:  "My payment failed",
			Output: "I understand your payment didn't go through. Let me help you update your payment method. Please check if your card details are correct and have sufficient funds. You can update your payment information in the billing section.",
		},
		{
			Input:  "I need a refund",
			Output: "I can help you with refund requests. Refunds are typically processed within 5-7 business days. May I know the reason for your refund request so I can assist you better?",
		},
		{
			Input:  "How do I upgrade my plan?",
			Output: "You can upgrade your plan anytime from your dashboard. Go to Billing > Plans and select the plan that suits your needs. The upgrade will take effect immediately.",
		},
		{
			Input:  "I'm having trouble with the mobile app",
			Output: "I'm sorry you're experiencing issues with our mobile app. Could you please tell me what specific problem you're encountering? This will help me provide the best solution.",
		},
		{
			Input:  "How do I change my email address?",
			Output: "To change your email address, go to Account Settings > Profile > Email Address. You'll need to verify the new email address before the change takes effect.",
		},
		{
			Input:  "I forgot my password",
			Output: "No problem! Click on 'Forgot Password' on the login page and enter your email address. We'll send you a reset link within a few minutes.",
		},
	}
}
