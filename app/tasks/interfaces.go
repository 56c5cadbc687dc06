package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the serve command and the API to run pipeline work in the background.
// Example usage:
//
//	scheduler := NewScheduler(runner, reviewRepo, feedRepo, registry, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	id, err := scheduler.EnqueueIngest("Reuters")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueIngest(source string) (string, error)
	EnqueueReviewSync() (string, error)
	History() []Record
}
