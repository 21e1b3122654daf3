package core

// Read-side result types produced by the aggregation engine.
type (
	MonthBucket struct {
		Year        int   `json:"year"`
		Month       int   `json:"month"`
		Count       int   `json:"count"`
		TotalAmount Money `json:"totalAmount"`
	}

	DayBucket struct {
		Year        int   `json:"year"`
		Month       int   `json:"month"`
		Day         int   `json:"day"`
		Count       int   `json:"count"`
		TotalAmount Money `json:"totalAmount"`
	}

	// Distribution is one group of a payment method or currency breakdown.
	Distribution struct {
		Key         string `json:"key"`
		Count       int    `json:"count"`
		TotalAmount Money  `json:"totalAmount"`
	}

	DonationSummary struct {
		Count         int   `json:"count"`
		TotalAmount   Money `json:"totalAmount"`
		AverageAmount Money `json:"averageAmount"`
	}

	// RetentionBucket counts the donors that made exactly Donations completed donations.
	RetentionBucket struct {
		Donations int `json:"donations"`
		Donors    int `json:"donors"`
	}

	TopDonor struct {
		DonorID     string    `json:"donorId"`
		FullName    string    `json:"fullName"`
		Email       string    `json:"email"`
		DonorType   DonorType `json:"donorType"`
		Count       int       `json:"count"`
		TotalAmount Money     `json:"totalAmount"`
	}

	MonthCount struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Count int `json:"count"`
	}

	StatusCount struct {
		Status CampaignStatus `json:"status"`
		Count  int            `json:"count"`
	}

	CategoryPerformance struct {
		Category    CampaignCategory `json:"category"`
		Count       int              `json:"count"`
		TotalGoal   Money            `json:"totalGoal"`
		TotalRaised Money            `json:"totalRaised"`
		SuccessRate float64          `json:"successRate"`
	}

	CompletionRate struct {
		Completed     int   `json:"completed"`
		AverageGoal   Money `json:"averageGoal"`
		AverageRaised Money `json:"averageRaised"`
	}

	TopCampaign struct {
		ID                 string           `json:"id"`
		Name               string           `json:"name"`
		Category           CampaignCategory `json:"category"`
		Status             CampaignStatus   `json:"status"`
		Goal               Money            `json:"goal"`
		CurrentAmount      Money            `json:"currentAmount"`
		ProgressPercentage float64          `json:"progressPercentage"`
	}

	Dashboard struct {
		TotalDonations  int            `json:"totalDonations"`
		TotalAmount     Money          `json:"totalAmount"`
		RecentDonations int            `json:"recentDonations"`
		RecentAmount    Money          `json:"recentAmount"`
		ActiveDonors    int            `json:"activeDonors"`
		NewDonors       int            `json:"newDonors"`
		TotalCampaigns  int            `json:"totalCampaigns"`
		ActiveCampaigns int            `json:"activeCampaigns"`
		MonthlyTrend    []MonthBucket  `json:"monthlyTrend"`
		PaymentMethods  []Distribution `json:"paymentMethods"`
	}

	DonationStats struct {
		MonthlyTrend   []MonthBucket  `json:"monthlyTrend"`
		PaymentMethods []Distribution `json:"paymentMethods"`
	}

	DonationAnalytics struct {
		Summary        DonationSummary `json:"summary"`
		DailyTrend     []DayBucket     `json:"dailyTrend"`
		PaymentMethods []Distribution  `json:"paymentMethods"`
		Currencies     []Distribution  `json:"currencies"`
	}

	DonorAnalytics struct {
		Retention     []RetentionBucket `json:"retention"`
		TopDonors     []TopDonor        `json:"topDonors"`
		NewDonorTrend []MonthCount      `json:"newDonorTrend"`
	}

	CampaignAnalytics struct {
		StatusDistribution  []StatusCount         `json:"statusDistribution"`
		CategoryPerformance []CategoryPerformance `json:"categoryPerformance"`
		CompletionRate      CompletionRate        `json:"completionRate"`
		TopCampaigns        []TopCampaign         `json:"topCampaigns"`
	}

	// ReconcileReport counts the totals a reconciliation pass rewrote.
	ReconcileReport struct {
		DonorsChecked      int `json:"donorsChecked"`
		DonorsCorrected    int `json:"donorsCorrected"`
		CampaignsChecked   int `json:"campaignsChecked"`
		CampaignsCorrected int `json:"campaignsCorrected"`
	}
)
