package buddy

import (
	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/phys"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

// BuildStatsString returns a JSON document describing the allocator: the managed
// range, byte totals, and for every size class the number of free blocks and live
// allocations. When detailed is true, each class also lists its free blocks.
func (a *Allocator) BuildStatsString(detailed bool) string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	writer := jwriter.NewWriter()
	a.printStats(&writer, detailed)

	return string(writer.Bytes())
}

func (a *Allocator) printStats(writer *jwriter.Writer, detailed bool) {
	json := writer.Object()
	defer json.End()

	json.Name("Start").String(a.start.String())
	json.Name("End").String(a.end.String())
	json.Name("TotalBytes").Int(int(a.Size()))
	json.Name("FreeBytes").Int(int(a.freeBytes))
	json.Name("AllocatedBytes").Int(int(a.liveBytes))
	json.Name("Allocations").Int(a.liveCount)
	json.Name("SeededBlocks").Int(a.seededBlocks)
	json.Name("Flags").String(a.flags.String())

	classes := json.Name("Classes").Object()
	defer classes.End()

	for class := blocksize.Min; class <= blocksize.Max; class++ {
		if a.lists[class].count == 0 && a.liveByClass[class] == 0 {
			continue
		}

		classObj := classes.Name(class.String()).Object()
		classObj.Name("FreeBlocks").Int(a.lists[class].count)
		classObj.Name("Allocations").Int(a.liveByClass[class])

		if detailed {
			a.printFreeBlocks(&classObj, class)
		}

		classObj.End()
	}
}

func (a *Allocator) printFreeBlocks(json *jwriter.ObjectState, class blocksize.Class) {
	arrayState := json.Name("Free").Array()
	defer arrayState.End()

	_ = a.lists[class].visit(a.window, func(addr phys.PhysAddr, header freeBlockHeader) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Address").String(addr.String())
		obj.Name("Size").Int(int(class.Bytes()))
		return nil
	})
}

// DebugLogFreeBlocks writes one debug record per free block to logger.
func (a *Allocator) DebugLogFreeBlocks(logger *slog.Logger) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_ = a.visitFreeBlocks(func(addr phys.PhysAddr, class blocksize.Class) error {
		logger.Debug("free block",
			slog.String("Address", addr.String()),
			slog.String("Class", class.String()),
		)
		return nil
	})
}
