package marketplace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskmesh/marketplace/internal/db"
	"github.com/taskmesh/marketplace/internal/db/models"
	"github.com/taskmesh/marketplace/internal/events"
	"github.com/taskmesh/marketplace/internal/schedule"
)

const (
	assetNative = "native"
	assetStable = "stable"

	provider1 = "provider-1"
	provider2 = "provider-2"
	consumer1 = "consumer-1"
	matcher1  = "matcher-1"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *fakeClock) Now() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *fakeClock) Set(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// payment records one reward movement.
type payment struct {
	Reward  Reward
	Account string
}

// rewardRecorder records payouts instead of moving balances and can be
// told to fail.
type rewardRecorder struct {
	mu          sync.Mutex
	Locked      []payment
	Paid        []payment
	MatcherPaid []payment

	FailLock bool
	FailPay  bool
}

func (r *rewardRecorder) LockReward(_ context.Context, reward Reward, payer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailLock {
		return fmt.Errorf("lock refused")
	}
	r.Locked = append(r.Locked, payment{Reward: reward, Account: payer})
	return nil
}

func (r *rewardRecorder) PayReward(_ context.Context, reward Reward, payee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailPay {
		return fmt.Errorf("payment refused")
	}
	r.Paid = append(r.Paid, payment{Reward: reward, Account: payee})
	return nil
}

func (r *rewardRecorder) PayMatcherReward(_ context.Context, reward Reward, payee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MatcherPaid = append(r.MatcherPaid, payment{Reward: reward, Account: payee})
	return nil
}

// MarketplaceTestSuite exercises the full engine over a real database.
type MarketplaceTestSuite struct {
	suite.Suite

	ctx     context.Context
	db      *gorm.DB
	tmpDir  string
	svc     *Service
	clock   *fakeClock
	rewards *rewardRecorder
	attest  *StoredAttestations
}

func TestMarketplaceSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceTestSuite))
}

func (s *MarketplaceTestSuite) SetupSuite() {
	events.Start(context.Background())
}

func (s *MarketplaceTestSuite) SetupTest() {
	s.ctx = context.Background()

	tmpDir, err := os.MkdirTemp("", "marketplace_test")
	s.Require().NoError(err)
	s.tmpDir = tmpDir

	database, err := gorm.Open(sqlite.Open(filepath.Join(tmpDir, "marketplace_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(database))
	s.db = database

	s.clock = &fakeClock{}
	s.rewards = &rewardRecorder{}
	s.attest = NewStoredAttestations(database)
	s.svc = NewService(database, Options{
		Rewards:     s.rewards,
		Assets:      NewAssetAllowlist(assetNative, assetStable),
		Attestation: s.attest,
		Clock:       s.clock,
	})
}

func (s *MarketplaceTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
	_ = os.RemoveAll(s.tmpDir)
}

// testAdvertisement returns an advertisement accepting any consumer with
// a single pricing variant in the native asset.
func testAdvertisement(capacity uint32) Advertisement {
	return Advertisement{
		MaxMemory:           1024,
		NetworkRequestQuota: 10,
		StorageCapacity:     capacity,
		Pricing: []Pricing{{
			RewardAsset:         assetNative,
			FeePerMillisecond:   2,
			FeePerStorageByte:   1,
			BaseFeePerExecution: 100,
			WindowKind:          "end",
			Window:              2_000_000,
		}},
	}
}

// testJob returns a 4-execution job: runs of 500ms every 1000ms between
// t=1_000_000 and t=1_004_000. Its per-execution fee under
// testAdvertisement's pricing is 2*500 + 1*100 + 100 = 1200.
func testJob(script string, slots uint8) JobRegistration {
	return JobRegistration{
		Script: script,
		Schedule: schedule.Schedule{
			StartTime: 1_000_000,
			EndTime:   1_004_000,
			Duration:  500,
			Interval:  1_000,
		},
		Slots:           slots,
		Memory:          512,
		NetworkRequests: 1,
		Storage:         100,
		Reward:          Reward{Asset: assetNative, Amount: 2_000},
	}
}

func (s *MarketplaceTestSuite) advertise(provider string, capacity uint32) {
	s.Require().NoError(s.svc.Advertise(s.ctx, provider, testAdvertisement(capacity)))
}

func (s *MarketplaceTestSuite) registerJob(script string, slots uint8) string {
	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, testJob(script, slots))
	s.Require().NoError(err)
	return jobID
}

func (s *MarketplaceTestSuite) capacity(provider string) int64 {
	capacity, err := s.svc.ads.GetCapacity(s.ctx, provider)
	s.Require().NoError(err)
	return capacity.Remaining
}

// --- Advertisement ---

func (s *MarketplaceTestSuite) TestAdvertiseStoresCapacityAndPricing() {
	s.advertise(provider1, 1_000)

	ad, err := s.svc.GetAdvertisement(s.ctx, provider1)
	s.Require().NoError(err)
	s.Equal(uint32(1024), ad.MaxMemory)
	s.Equal(int64(1_000), s.capacity(provider1))

	pricing, err := s.svc.ads.GetPricing(s.ctx, provider1, assetNative)
	s.Require().NoError(err)
	s.Equal(uint64(100), pricing.BaseFeePerExecution)
	s.Equal(models.SchedulingWindowEnd, pricing.WindowKind)
}

func (s *MarketplaceTestSuite) TestAdvertiseUpdateAdjustsRemainingCapacity() {
	s.advertise(provider1, 1_000)

	// Commit 100 bytes of the capacity to a job.
	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)
	s.Equal(int64(900), s.capacity(provider1))

	// remaining' = remaining + new total - old total
	s.advertise(provider1, 500)
	s.Equal(int64(400), s.capacity(provider1))

	// Shrinking below the committed usage drives the counter negative.
	s.advertise(provider1, 100)
	s.Equal(int64(0), s.capacity(provider1))
	s.advertise(provider1, 50)
	s.Equal(int64(-50), s.capacity(provider1))
}

func (s *MarketplaceTestSuite) TestAdvertiseValidation() {
	err := s.svc.Advertise(s.ctx, provider1, Advertisement{})
	s.ErrorIs(err, ErrEmptyPricing)

	ad := testAdvertisement(1_000)
	ad.Pricing[0].RewardAsset = "doge"
	s.ErrorIs(s.svc.Advertise(s.ctx, provider1, ad), ErrInvalidAssetID)

	ad = testAdvertisement(1_000)
	ad.Pricing[0].WindowKind = "sometime"
	s.Error(s.svc.Advertise(s.ctx, provider1, ad))

	ad = testAdvertisement(1_000)
	for i := 0; i <= models.MaxPricingVariants; i++ {
		ad.Pricing = append(ad.Pricing, ad.Pricing[0])
	}
	s.ErrorIs(s.svc.Advertise(s.ctx, provider1, ad), ErrLengthExceeded)
}

func (s *MarketplaceTestSuite) TestDeleteAdvertisement() {
	s.ErrorIs(s.svc.DeleteAdvertisement(s.ctx, provider1), ErrAdvertisementNotFound)

	s.advertise(provider1, 1_000)
	s.Require().NoError(s.svc.DeleteAdvertisement(s.ctx, provider1))

	_, err := s.svc.GetAdvertisement(s.ctx, provider1)
	s.ErrorIs(err, ErrAdvertisementNotFound)
	_, err = s.svc.ads.GetPricing(s.ctx, provider1, assetNative)
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *MarketplaceTestSuite) TestDeleteAdvertisementWhileMatched() {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)

	s.ErrorIs(s.svc.DeleteAdvertisement(s.ctx, provider1), ErrCannotDeleteAdvertisementWhileMatched)
}

// --- Registration ---

func (s *MarketplaceTestSuite) TestRegisterJobValidation() {
	cases := []struct {
		name   string
		mutate func(*JobRegistration)
		err    error
	}{
		{"zero duration", func(j *JobRegistration) { j.Schedule.Duration = 0 }, ErrJobRegistrationZeroDuration},
		{"duration exceeds interval", func(j *JobRegistration) { j.Schedule.Duration = 1_000 }, ErrJobRegistrationDurationExceedsInterval},
		{"start in past", func(j *JobRegistration) {
			j.Schedule.StartTime = 100
			j.Schedule.EndTime = 4_100
		}, ErrJobRegistrationStartInPast},
		{"zero executions", func(j *JobRegistration) { j.Schedule.EndTime = j.Schedule.StartTime + 100 }, ErrJobRegistrationZeroExecutions},
		{"too many executions", func(j *JobRegistration) { j.Schedule.EndTime = j.Schedule.StartTime + 1_000_000 }, ErrJobRegistrationExceedsMaxExecutions},
		{"zero slots", func(j *JobRegistration) { j.Slots = 0 }, ErrJobRegistrationZeroSlots},
		{"zero reward", func(j *JobRegistration) { j.Reward.Amount = 0 }, ErrJobRegistrationZeroReward},
	}
	s.clock.Set(1_000)

	for _, tc := range cases {
		s.Run(tc.name, func() {
			job := testJob("script-1", 1)
			tc.mutate(&job)
			_, err := s.svc.RegisterJob(s.ctx, consumer1, job)
			s.ErrorIs(err, tc.err)
		})
	}
}

func (s *MarketplaceTestSuite) TestRegisterJobLocksTotalReward() {
	jobID := s.registerJob("script-1", 2)
	s.NotEmpty(jobID)

	status, err := s.svc.GetJobStatus(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateOpen, status.State)

	// 2 slots * 4 executions * 2000 per slot execution
	s.Require().Len(s.rewards.Locked, 1)
	s.Equal(Reward{Asset: assetNative, Amount: 16_000}, s.rewards.Locked[0].Reward)
	s.Equal(consumer1, s.rewards.Locked[0].Account)
}

func (s *MarketplaceTestSuite) TestRegisterJobLockFailureKeepsRegistration() {
	s.rewards.FailLock = true

	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, testJob("script-1", 1))
	s.ErrorIs(err, ErrFailedToPay)

	// The registration committed before the lock was attempted.
	_, getErr := s.svc.GetJob(s.ctx, jobID)
	s.NoError(getErr)
}

func (s *MarketplaceTestSuite) TestReRegisterOpenJobKeepsJobID() {
	jobID := s.registerJob("script-1", 1)

	updated := testJob("script-1", 1)
	updated.Memory = 768
	again, err := s.svc.RegisterJob(s.ctx, consumer1, updated)
	s.Require().NoError(err)
	s.Equal(jobID, again)

	job, err := s.svc.GetJob(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(uint32(768), job.Memory)
}

func (s *MarketplaceTestSuite) TestReRegisterMatchedJobFails() {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)

	_, err = s.svc.RegisterJob(s.ctx, consumer1, testJob("script-1", 1))
	s.ErrorIs(err, ErrJobRegistrationUnmodifiable)
}

func (s *MarketplaceTestSuite) TestRegisterJobWithInstantMatch() {
	s.advertise(provider1, 1_000)

	job := testJob("script-1", 1)
	job.InstantMatch = []PlannedExecution{{Source: provider1}}
	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)

	status, err := s.svc.GetJobStatus(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateMatched, status.State)

	_, err = s.svc.GetAssignment(s.ctx, provider1, jobID)
	s.NoError(err)
}

func (s *MarketplaceTestSuite) TestDeregisterJob() {
	jobID := s.registerJob("script-1", 1)

	// Only the owner can deregister.
	s.ErrorIs(s.svc.DeregisterJob(s.ctx, "someone-else", jobID), ErrJobRegistrationNotFound)

	s.Require().NoError(s.svc.DeregisterJob(s.ctx, consumer1, jobID))
	_, err := s.svc.GetJob(s.ctx, jobID)
	s.ErrorIs(err, ErrJobRegistrationNotFound)
}

func (s *MarketplaceTestSuite) TestDeregisterMatchedJob() {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)

	s.ErrorIs(s.svc.DeregisterJob(s.ctx, consumer1, jobID), ErrJobRegistrationUnmodifiable)

	// Once the start time has passed without assignment the job can go.
	s.clock.Set(1_000_001)
	s.NoError(s.svc.DeregisterJob(s.ctx, consumer1, jobID))
}

func (s *MarketplaceTestSuite) TestUpdateAllowedSources() {
	jobID := s.registerJob("script-1", 1)

	s.Require().NoError(s.svc.UpdateAllowedSources(s.ctx, consumer1, jobID, models.AccountList{provider2}))

	job, err := s.svc.GetJob(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(models.AccountList{provider2}, job.AllowedSources)

	// Matching against the excluded provider now fails.
	s.advertise(provider1, 1_000)
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrSourceNotAllowed)
}

// --- Matching ---

func (s *MarketplaceTestSuite) TestProposeMatchingPaysRemainderToMatcher() {
	s.advertise(provider1, 1_000)
	s.advertise(provider2, 1_000)
	jobID := s.registerJob("script-1", 2)

	remainder, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}, {Source: provider2}}},
	})
	s.Require().NoError(err)

	// total reward 16000 minus 2 slots * 4 executions * 1200 fee
	s.Equal(Reward{Asset: assetNative, Amount: 6_400}, remainder)
	s.Require().Len(s.rewards.MatcherPaid, 1)
	s.Equal(matcher1, s.rewards.MatcherPaid[0].Account)
	s.Equal(remainder, s.rewards.MatcherPaid[0].Reward)

	status, err := s.svc.GetJobStatus(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateMatched, status.State)

	s.Equal(int64(900), s.capacity(provider1))
	s.Equal(int64(900), s.capacity(provider2))

	assignment, err := s.svc.GetAssignment(s.ctx, provider2, jobID)
	s.Require().NoError(err)
	s.Equal(uint8(1), assignment.Slot)
	s.Equal(uint64(1_200), assignment.FeePerExecution)
	s.Equal(uint64(4), assignment.SLATotal)
}

func (s *MarketplaceTestSuite) TestProposeMatchingRejections() {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 1)

	_, err := s.svc.ProposeMatching(s.ctx, matcher1, nil)
	s.ErrorIs(err, ErrEmptyMatching)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: "no-such-job", Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrJobRegistrationNotFound)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}, {Source: provider2}}},
	})
	s.ErrorIs(err, ErrIncorrectSourceCount)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider2}}},
	})
	s.ErrorIs(err, ErrAdvertisementNotFound)

	// Past the start time the match is overdue.
	s.clock.Set(1_000_000)
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrOverdueMatch)
}

func (s *MarketplaceTestSuite) TestProposeMatchingResourceChecks() {
	s.advertise(provider1, 1_000)

	// More memory than advertised.
	job := testJob("script-mem", 1)
	job.Memory = 2_048
	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrMaxMemoryExceeded)

	// More network requests than the quota supports.
	job = testJob("script-net", 1)
	job.NetworkRequests = 100
	jobID, err = s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrNetworkRequestQuotaExceeded)

	// No remaining storage capacity.
	s.advertise(provider2, 0)
	job = testJob("script-store", 1)
	jobID, err = s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider2}}},
	})
	s.ErrorIs(err, ErrInsufficientStorageCapacity)
}

func (s *MarketplaceTestSuite) TestProposeMatchingInsufficientReward() {
	s.advertise(provider1, 1_000)

	job := testJob("script-1", 1)
	job.Reward.Amount = 1_100 // fee is 1200 per execution
	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrInsufficientReward)
}

func (s *MarketplaceTestSuite) TestProposeMatchingConsumerNotAllowed() {
	ad := testAdvertisement(1_000)
	ad.AllowedConsumers = models.AccountList{"someone-else"}
	s.Require().NoError(s.svc.Advertise(s.ctx, provider1, ad))

	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrConsumerNotAllowed)
}

func (s *MarketplaceTestSuite) TestProposeMatchingVerifiedSourcesOnly() {
	s.advertise(provider1, 1_000)

	job := testJob("script-1", 1)
	job.AllowOnlyVerifiedSources = true
	jobID, err := s.svc.RegisterJob(s.ctx, consumer1, job)
	s.Require().NoError(err)

	match := []Match{{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}}}
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, match)
	s.ErrorIs(err, ErrUnverifiedSourceInMatch)

	s.Require().NoError(s.attest.Verify(s.ctx, provider1))
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, match)
	s.NoError(err)
}

func (s *MarketplaceTestSuite) TestProposeMatchingScheduleConflict() {
	s.advertise(provider1, 1_000)
	job1 := s.registerJob("script-1", 1)
	job2 := s.registerJob("script-2", 1)

	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: job1, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)

	// The identical cadence collides with the committed schedule.
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: job2, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.ErrorIs(err, ErrScheduleOverlap)

	// Delaying the second job past the run duration interleaves the two
	// cadences into the idle gaps.
	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: job2, Sources: []PlannedExecution{{Source: provider1, StartDelay: 500}}},
	})
	s.NoError(err)
}

func (s *MarketplaceTestSuite) TestProposeMatchingAllOrNothing() {
	s.advertise(provider1, 1_000)
	s.advertise(provider2, 1_000)
	goodJob := s.registerJob("script-good", 1)

	badJob := testJob("script-bad", 1)
	badJob.Reward.Amount = 1_100
	badJobID, err := s.svc.RegisterJob(s.ctx, consumer1, badJob)
	s.Require().NoError(err)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: goodJob, Sources: []PlannedExecution{{Source: provider1}}},
		{JobID: badJobID, Sources: []PlannedExecution{{Source: provider2}}},
	})
	s.ErrorIs(err, ErrInsufficientReward)

	// The failing second match rolled back the first one as well.
	status, err := s.svc.GetJobStatus(s.ctx, goodJob)
	s.Require().NoError(err)
	s.Equal(models.JobStateOpen, status.State)
	_, err = s.svc.GetAssignment(s.ctx, provider1, goodJob)
	s.ErrorIs(err, ErrReportFromUnassignedSource)
	s.Equal(int64(1_000), s.capacity(provider1))
	s.Empty(s.rewards.MatcherPaid)
}

func (s *MarketplaceTestSuite) TestProposeMatchingMixedAssets() {
	ad := testAdvertisement(1_000)
	ad.Pricing = append(ad.Pricing, Pricing{
		RewardAsset:         assetStable,
		FeePerMillisecond:   2,
		FeePerStorageByte:   1,
		BaseFeePerExecution: 100,
		WindowKind:          "end",
		Window:              2_000_000,
	})
	s.Require().NoError(s.svc.Advertise(s.ctx, provider1, ad))
	s.Require().NoError(s.svc.Advertise(s.ctx, provider2, ad))

	nativeJob := s.registerJob("script-native", 1)

	stableJob := testJob("script-stable", 1)
	stableJob.Reward.Asset = assetStable
	stableJobID, err := s.svc.RegisterJob(s.ctx, consumer1, stableJob)
	s.Require().NoError(err)

	_, err = s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: nativeJob, Sources: []PlannedExecution{{Source: provider1}}},
		{JobID: stableJobID, Sources: []PlannedExecution{{Source: provider2}}},
	})
	s.ErrorIs(err, ErrMultipleRewardAssetsInMatch)
}

func (s *MarketplaceTestSuite) TestProposeMatchingDuplicateSource() {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 2)

	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}, {Source: provider1}}},
	})
	s.ErrorIs(err, ErrScheduleOverlap)
}

// --- Assignment lifecycle ---

// matchSingle advertises, registers and matches a one-slot job, returning
// its ID.
func (s *MarketplaceTestSuite) matchSingle() string {
	s.advertise(provider1, 1_000)
	jobID := s.registerJob("script-1", 1)
	_, err := s.svc.ProposeMatching(s.ctx, matcher1, []Match{
		{JobID: jobID, Sources: []PlannedExecution{{Source: provider1}}},
	})
	s.Require().NoError(err)
	return jobID
}

func (s *MarketplaceTestSuite) TestAcknowledgeMatch() {
	jobID := s.matchSingle()

	s.ErrorIs(s.svc.AcknowledgeMatch(s.ctx, provider2, jobID), ErrCannotAcknowledgeWhenNotMatched)

	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))
	status, err := s.svc.GetJobStatus(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateAssigned, status.State)
	s.Equal(uint8(1), status.Acknowledged)

	// Acknowledging again is a no-op.
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))
	status, err = s.svc.GetJobStatus(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(uint8(1), status.Acknowledged)
}

func (s *MarketplaceTestSuite) TestReportRequiresAcknowledgement() {
	jobID := s.matchSingle()

	s.clock.Set(1_000_100)
	err := s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true})
	s.ErrorIs(err, ErrCannotReportWhenNotAcknowledged)

	s.ErrorIs(s.svc.Report(s.ctx, provider2, jobID, false, ExecutionResult{Success: true}),
		ErrReportFromUnassignedSource)
}

func (s *MarketplaceTestSuite) TestReportOutsideSchedule() {
	jobID := s.matchSingle()
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))

	// Before the first execution starts, even the tolerance window does
	// not reach an agreed run.
	s.clock.Set(500_000)
	err := s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true})
	s.ErrorIs(err, ErrReportOutsideSchedule)

	// After the last execution ended.
	s.clock.Set(1_004_600)
	err = s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true})
	s.ErrorIs(err, ErrReportOutsideSchedule)
}

func (s *MarketplaceTestSuite) TestReportLifecycle() {
	jobID := s.matchSingle()
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))
	s.Equal(int64(900), s.capacity(provider1))

	reportTimes := []uint64{1_000_100, 1_001_100, 1_002_100, 1_003_100}
	for i, at := range reportTimes {
		s.clock.Set(at)
		last := i == len(reportTimes)-1
		err := s.svc.Report(s.ctx, provider1, jobID, last, ExecutionResult{
			Success:       true,
			OperationHash: fmt.Sprintf("hash-%d", i),
		})
		s.Require().NoError(err)
	}

	// Each report paid the per-execution fee.
	s.Require().Len(s.rewards.Paid, len(reportTimes))
	for _, p := range s.rewards.Paid {
		s.Equal(Reward{Asset: assetNative, Amount: 1_200}, p.Reward)
		s.Equal(provider1, p.Account)
	}

	// The final report removed the job and restored the capacity.
	_, err := s.svc.GetJob(s.ctx, jobID)
	s.ErrorIs(err, ErrJobRegistrationNotFound)
	_, err = s.svc.GetAssignment(s.ctx, provider1, jobID)
	s.ErrorIs(err, ErrReportFromUnassignedSource)
	s.Equal(int64(1_000), s.capacity(provider1))
}

func (s *MarketplaceTestSuite) TestReportFailureStillPays() {
	jobID := s.matchSingle()
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))

	s.clock.Set(1_000_100)
	err := s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{
		Success: false,
		Message: "script panicked",
	})
	s.Require().NoError(err)
	s.Len(s.rewards.Paid, 1)
}

func (s *MarketplaceTestSuite) TestMoreReportsThanExpected() {
	jobID := s.matchSingle()
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))

	for _, at := range []uint64{1_000_100, 1_001_100, 1_002_100, 1_003_100} {
		s.clock.Set(at)
		s.Require().NoError(s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true}))
	}

	s.clock.Set(1_003_200)
	err := s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true})
	s.ErrorIs(err, ErrMoreReportsThanExpected)
}

func (s *MarketplaceTestSuite) TestReportPayFailureSurfaces() {
	jobID := s.matchSingle()
	s.Require().NoError(s.svc.AcknowledgeMatch(s.ctx, provider1, jobID))

	s.rewards.FailPay = true
	s.clock.Set(1_000_100)
	err := s.svc.Report(s.ctx, provider1, jobID, false, ExecutionResult{Success: true})
	s.ErrorIs(err, ErrFailedToPay)

	// The SLA counter committed before the payment was attempted.
	assignment, getErr := s.svc.GetAssignment(s.ctx, provider1, jobID)
	s.Require().NoError(getErr)
	s.Equal(uint64(1), assignment.SLAMet)
}
