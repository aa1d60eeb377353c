package model

// HolderBalance is one ledger entry in a snapshot.
type HolderBalance struct {
	Holder string `json:"holder"`
	Shares string `json:"shares"`
}

// PositionRecord is the stored mirror of one held position.
type PositionRecord struct {
	ID           uint64 `json:"id"`
	TickLower    int32  `json:"tick_lower"`
	TickUpper    int32  `json:"tick_upper"`
	Liquidity    string `json:"liquidity"`
	Owed0        string `json:"owed0"`
	Owed1        string `json:"owed1"`
	Depositor    string `json:"depositor"`
	MintedShares string `json:"minted_shares"`
}

// VaultSnapshot is the full vault state at one point in time, suitable for
// persistence and audit.
type VaultSnapshot struct {
	Vault       string           `json:"vault"`
	TotalShares string           `json:"total_shares"`
	Holders     []HolderBalance  `json:"holders"`
	Positions   []PositionRecord `json:"positions"`
	TakenAt     string           `json:"taken_at"`
}
