package report

type Report struct {
	Run            *RunReport            `json:"run,omitempty"`
	Syncer         *SyncerReport         `json:"syncer,omitempty"`
	Mirror         *MirrorReport         `json:"mirror,omitempty"`
	Anchor         *AnchorReport         `json:"anchor,omitempty"`
	RedisPublisher *RedisPublisherReport `json:"redis_publisher,omitempty"`
}

func NewReport() *Report {
	return &Report{
		Run:            &RunReport{},
		Syncer:         &SyncerReport{},
		Mirror:         &MirrorReport{},
		Anchor:         &AnchorReport{},
		RedisPublisher: &RedisPublisherReport{},
	}
}
