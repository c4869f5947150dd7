package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc — функция задачи планировщика.
type JobFunc func(ctx context.Context) error

// CronJobID — идентификатор задачи по cron-расписанию.
type CronJobID = cron.EntryID

// IntervalJobID — идентификатор задачи с фиксированным интервалом.
// Именно такой ID реестр отслеживания хранит как schedule handle.
type IntervalJobID int

// OverlapPolicy — поведение при пересечении запусков одной задачи.
type OverlapPolicy int

const (
	// AllowOverlap разрешает параллельные запуски (по умолчанию).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning пропускает тик, пока предыдущий ещё выполняется.
	SkipIfRunning
)

// JobOptions — настройки задачи.
type JobOptions struct {
	// Name попадает в логи планировщика.
	Name string
	// Timeout ограничивает время одного запуска (0 — без ограничения).
	Timeout time.Duration
	// OverlapPolicy — политика пересечения запусков.
	OverlapPolicy OverlapPolicy
}

type jobWrapper struct {
	job     JobFunc
	options JobOptions
	running sync.Mutex // контроль пересечений
}

type intervalJob struct {
	id      IntervalJobID
	ticker  *time.Ticker
	cancel  context.CancelFunc
	wrapper *jobWrapper
}

// cronLogger переправляет лог cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, pairAttrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	attrs := append([]slog.Attr{slog.Any("error", err)}, pairAttrs(keysAndValues)...)
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func pairAttrs(keysAndValues []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, keysAndValues[i+1]))
	}
	return attrs
}

// Scheduler управляет периодическими задачами: cron-задачами для служебных
// работ и интервальными задачами, по одной на каждого отслеживаемого
// пользователя.
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	intervals map[IntervalJobID]*intervalJob
	nextJobID IntervalJobID
	stopOnce  sync.Once
	startOnce sync.Once
}

// Config — конфигурация планировщика.
type Config struct {
	Logger *slog.Logger
}

// New создаёт планировщик с background-контекстом.
func New(cfg Config) *Scheduler {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext создаёт планировщик, привязанный к родительскому контексту:
// отмена контекста останавливает все задачи.
func NewWithContext(parentCtx context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{logger: logger.With("component", "cron")}),
		),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		intervals: make(map[IntervalJobID]*intervalJob),
		nextJobID: 1,
	}
}

// AddCronJob добавляет задачу по cron-расписанию ("@daily", "@every 5m", ...).
func (s *Scheduler) AddCronJob(schedule string, job JobFunc) (CronJobID, error) {
	wrapper := &jobWrapper{job: job}
	id, err := s.cron.AddJob(schedule, cron.FuncJob(func() {
		s.runJobWrapper(wrapper)
	}))
	if err != nil {
		s.logger.Error("failed to add cron job", "schedule", schedule, "error", err)
		return 0, err
	}
	s.logger.Info("cron job added", "schedule", schedule, "id", id)
	return id, nil
}

// AddIntervalJob добавляет задачу с фиксированным интервалом и опциями по
// умолчанию.
func (s *Scheduler) AddIntervalJob(interval time.Duration, job JobFunc) IntervalJobID {
	return s.AddIntervalJobWithOptions(interval, job, JobOptions{})
}

// AddIntervalJobWithOptions добавляет интервальную задачу. Первый тик
// происходит через interval, не сразу.
func (s *Scheduler) AddIntervalJobWithOptions(interval time.Duration, job JobFunc, opts JobOptions) IntervalJobID {
	wrapper := &jobWrapper{job: job, options: opts}

	s.mu.Lock()
	id := s.nextJobID
	s.nextJobID++

	ticker := time.NewTicker(interval)
	ctx, cancel := context.WithCancel(s.ctx)
	s.intervals[id] = &intervalJob{id: id, ticker: ticker, cancel: cancel, wrapper: wrapper}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		defer cancel()

		for {
			select {
			case <-ticker.C:
				s.runJobWrapper(wrapper)
			case <-ctx.Done():
				s.logger.Debug("interval job stopped", "name", opts.Name, "id", id)
				return
			}
		}
	}()

	s.logger.Info("interval job added", "interval", interval, "name", opts.Name, "id", id)
	return id
}

// RemoveCronJob удаляет cron-задачу.
func (s *Scheduler) RemoveCronJob(id CronJobID) {
	s.cron.Remove(id)
	s.logger.Info("cron job removed", "id", id)
}

// RemoveIntervalJob отменяет интервальную задачу. Уже начавшийся тик
// довыполняется, новые тики не происходят. Возвращает false для
// неизвестного ID.
func (s *Scheduler) RemoveIntervalJob(id IntervalJobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.intervals[id]
	if !exists {
		return false
	}

	job.cancel()
	delete(s.intervals, id)

	s.logger.Info("interval job removed", "id", id, "name", job.wrapper.options.Name)
	return true
}

// Start запускает планировщик. Повторные вызовы безопасны.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.cron.Start()

		go func() {
			<-s.ctx.Done()
			s.logger.Info("stopping scheduler due to context cancellation")
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop останавливает планировщик и ждёт завершения всех задач.
func (s *Scheduler) Stop() {
	if !s.IsRunning() {
		return
	}
	s.logger.Info("stopping scheduler")
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext останавливает планировщик с дедлайном. Если дедлайн истёк
// раньше, остановка всё равно доводится до конца, а вызывающему
// возвращается ошибка контекста.
func (s *Scheduler) StopContext(ctx context.Context) error {
	if !s.IsRunning() {
		return nil
	}

	s.logger.Info("stopping scheduler with deadline")
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded, shutdown continues")
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.mu.Lock()
	for _, job := range s.intervals {
		job.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// runJobWrapper выполняет задачу с учётом её опций: политика пересечений,
// таймаут, восстановление после паники.
func (s *Scheduler) runJobWrapper(wrapper *jobWrapper) {
	jobName := wrapper.options.Name
	if jobName == "" {
		jobName = "unnamed"
	}

	if wrapper.options.OverlapPolicy == SkipIfRunning {
		if !wrapper.running.TryLock() {
			s.logger.Debug("skipping job execution, already running", "name", jobName)
			return
		}
		defer wrapper.running.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "name", jobName, "panic", fmt.Sprintf("%v", r))
		}
	}()

	ctx := s.ctx
	if wrapper.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wrapper.options.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := wrapper.job(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("job failed", "name", jobName, "error", err, "duration", duration)
	} else {
		s.logger.Debug("job completed", "name", jobName, "duration", duration)
	}
}

// IsRunning возвращает true, пока планировщик не остановлен.
func (s *Scheduler) IsRunning() bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
		return true
	}
}
