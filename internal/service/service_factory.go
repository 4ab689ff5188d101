package service

import (
	"go.uber.org/zap"

	"mathmentor-api/internal/bucketing"
	"mathmentor-api/internal/client"
	"mathmentor-api/internal/config"
	"mathmentor-api/internal/encryption"
	"mathmentor-api/internal/hashing"
	redisrepo "mathmentor-api/internal/repository/redis"
	"mathmentor-api/internal/repository/scylla"
	"mathmentor-api/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	config *config.Config
	logger *zap.Logger

	adminRepo   scylla.AdminRepository
	sessionRepo scylla.SessionRepository
	profileRepo scylla.ProfileRepository
	contentRepo scylla.ContentRepository

	verifier      *hashing.Verifier
	issuer        *token.Issuer
	sessionCache  *redisrepo.SessionCache
	loginLimiter  *redisrepo.LoginLimiter
	encryptionMgr *encryption.EncryptionManager
	bucketingMgr  *bucketing.BucketingManager

	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient
	esClient         *client.ESClient

	authService      *AuthService
	auditService     *AuditService
	profileService   *ProfileService
	contentService   *ContentService
	dashboardService *DashboardService
}

// ServiceFactoryDeps bundles everything the services are built from.
// Optional sinks (Kafka, ClickHouse, Elasticsearch, Redis) may be nil;
// the dependent service degrades instead of failing construction.
type ServiceFactoryDeps struct {
	Config *config.Config
	Logger *zap.Logger

	AdminRepo   scylla.AdminRepository
	SessionRepo scylla.SessionRepository
	ProfileRepo scylla.ProfileRepository
	ContentRepo scylla.ContentRepository

	Verifier      *hashing.Verifier
	Issuer        *token.Issuer
	SessionCache  *redisrepo.SessionCache
	LoginLimiter  *redisrepo.LoginLimiter
	EncryptionMgr *encryption.EncryptionManager
	BucketingMgr  *bucketing.BucketingManager

	KafkaProducer    *client.KafkaProducer
	ClickHouseClient *client.ClickHouseClient
	ESClient         *client.ESClient
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(deps ServiceFactoryDeps) *ServiceFactory {
	return &ServiceFactory{
		config:           deps.Config,
		logger:           deps.Logger,
		adminRepo:        deps.AdminRepo,
		sessionRepo:      deps.SessionRepo,
		profileRepo:      deps.ProfileRepo,
		contentRepo:      deps.ContentRepo,
		verifier:         deps.Verifier,
		issuer:           deps.Issuer,
		sessionCache:     deps.SessionCache,
		loginLimiter:     deps.LoginLimiter,
		encryptionMgr:    deps.EncryptionMgr,
		bucketingMgr:     deps.BucketingMgr,
		kafkaProducer:    deps.KafkaProducer,
		clickhouseClient: deps.ClickHouseClient,
		esClient:         deps.ESClient,
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.adminRepo,
			f.sessionRepo,
			f.verifier,
			f.issuer,
			f.sessionCache,
			f.loginLimiter,
			f.ProfileService(),
			f.AuditService(),
			f.config,
			f.logger,
		)
	}
	return f.authService
}

// AuditService returns the audit service instance (singleton)
func (f *ServiceFactory) AuditService() *AuditService {
	if f.auditService == nil {
		// Assign only non-nil clients so the interface values stay nil
		// when a sink is absent.
		var producer EventPublisher
		if f.kafkaProducer != nil {
			producer = f.kafkaProducer
		}
		var store EventStore
		if f.clickhouseClient != nil {
			store = f.clickhouseClient
		}
		f.auditService = NewAuditService(producer, store, f.logger)
	}
	return f.auditService
}

// ProfileService returns the profile service instance (singleton)
func (f *ServiceFactory) ProfileService() *ProfileService {
	if f.profileService == nil {
		f.profileService = NewProfileService(
			f.profileRepo,
			f.bucketingMgr,
			f.encryptionMgr,
			f.logger,
		)
	}
	return f.profileService
}

// ContentService returns the content service instance (singleton)
func (f *ServiceFactory) ContentService() *ContentService {
	if f.contentService == nil {
		f.contentService = NewContentService(f.contentRepo, f.esClient, f.config, f.logger)
	}
	return f.contentService
}

// DashboardService returns the dashboard service instance (singleton)
func (f *ServiceFactory) DashboardService() *DashboardService {
	if f.dashboardService == nil {
		f.dashboardService = NewDashboardService(f.ProfileService(), f.ContentService(), f.logger)
	}
	return f.dashboardService
}

// Cleanup flushes and stops all services
func (f *ServiceFactory) Cleanup() {
	if f.auditService != nil {
		f.auditService.Close()
	}
}
