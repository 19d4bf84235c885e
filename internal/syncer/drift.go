package syncer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tangentlab/switchyard/internal/paths"
	"github.com/tangentlab/switchyard/internal/resfile"
	"github.com/tangentlab/switchyard/pkg/types"
)

// DetectDrift compares every stored resource against its live files and
// reports divergences as change events. Detected events replace any earlier
// unresolved events for the same paths in the store; detection never mutates
// live files or resource rows.
func (o *Orchestrator) DetectDrift(ctx context.Context) ([]types.ChangeEvent, error) {
	resources, err := o.store.ListResources()
	if err != nil {
		return nil, err
	}

	var events []types.ChangeEvent
	managed := make(map[string]bool)

	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events = append(events, o.driftForResource(res, managed)...)
	}

	unmanaged, err := o.unmanagedFiles(ctx, managed)
	if err != nil {
		return nil, err
	}
	events = append(events, unmanaged...)

	if err := o.store.RecordChangeEvents(events); err != nil {
		return nil, err
	}
	return events, nil
}

// driftForResource checks one resource's targets. When multiple apps carry
// the same resource and their live copies diverge from the store AND from
// each other, a single conflict event is reported instead of per-app
// modifications: no one external version can be taken as the new truth.
func (o *Orchestrator) driftForResource(res *types.Resource, managed map[string]bool) []types.ChangeEvent {
	type modified struct {
		app     types.AppType
		path    string
		content []byte
	}
	var (
		events []types.ChangeEvent
		mods   []modified
	)

	for app, path := range o.targets(res) {
		managed[path] = true
		live, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			events = append(events, types.ChangeEvent{
				Type:       types.ChangeExternalDeleted,
				App:        app,
				ResourceID: res.ID(),
				Path:       path,
				DetectedAt: o.now(),
			})
			continue
		}
		if err != nil {
			o.log.Warn("drift check unreadable", "path", path, "error", err)
			continue
		}
		if resfile.Hash(live) != res.FileHash {
			mods = append(mods, modified{app: app, path: path, content: live})
		}
	}

	conflicting := false
	if len(mods) > 1 {
		for _, m := range mods[1:] {
			if !bytes.Equal(mods[0].content, m.content) {
				conflicting = true
				break
			}
		}
	}
	if conflicting {
		for _, m := range mods {
			events = append(events, types.ChangeEvent{
				Type:       types.ChangeExternalConflict,
				App:        m.app,
				ResourceID: res.ID(),
				Path:       m.path,
				Detail:     "live copies diverged across apps",
				DetectedAt: o.now(),
			})
		}
		return events
	}
	for _, m := range mods {
		events = append(events, types.ChangeEvent{
			Type:       types.ChangeExternalModified,
			App:        m.app,
			ResourceID: res.ID(),
			Path:       m.path,
			DetectedAt: o.now(),
		})
	}
	return events
}

// unmanagedFiles walks every app's kind directories for .md files the store
// has no row for.
func (o *Orchestrator) unmanagedFiles(ctx context.Context, managed map[string]bool) ([]types.ChangeEvent, error) {
	var events []types.ChangeEvent
	for _, app := range types.AllApps {
		for _, kind := range types.AllKinds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			dir := o.dirs.ResourceDir(app, kind)
			err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
					return nil
				}
				if !managed[path] {
					events = append(events, types.ChangeEvent{
						Type:       types.ChangeExternalAdded,
						App:        app,
						Path:       path,
						DetectedAt: o.now(),
					})
				}
				return nil
			})
			if err != nil && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}
	return events, nil
}

// ResolveDrift settles one recorded event. Keep-local re-pushes the stored
// state over the external file (or deletes an unmanaged addition);
// accept-external imports the live content into the store and re-syncs so
// every app converges on it.
func (o *Orchestrator) ResolveDrift(ctx context.Context, eventID string, resolution types.Resolution) error {
	event, err := o.store.GetChangeEvent(eventID)
	if err != nil {
		return err
	}

	switch resolution {
	case types.ResolutionKeepLocal:
		if err := o.keepLocal(ctx, event); err != nil {
			return err
		}
	case types.ResolutionAcceptExternal:
		if err := o.acceptExternal(ctx, event); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown resolution %q", types.ErrValidation, resolution)
	}
	return o.store.ResolveChangeEvent(eventID)
}

func (o *Orchestrator) keepLocal(ctx context.Context, event *types.ChangeEvent) error {
	if event.Type == types.ChangeExternalAdded {
		if err := os.Remove(event.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		o.log.Info("removed unmanaged file", "path", event.Path)
		return nil
	}
	res, err := o.resourceForEvent(event)
	if err != nil {
		return err
	}
	return o.SyncResource(ctx, res)
}

func (o *Orchestrator) acceptExternal(ctx context.Context, event *types.ChangeEvent) error {
	switch event.Type {
	case types.ChangeExternalModified:
		res, err := o.resourceForEvent(event)
		if err != nil {
			return err
		}
		live, err := os.ReadFile(event.Path)
		if err != nil {
			return fmt.Errorf("read external content: %w", err)
		}
		if err := o.store.UpdateResourceContent(res.Identity, res.Scope, live, resfile.Hash(live)); err != nil {
			return err
		}
		res.Content = live
		res.FileHash = resfile.Hash(live)
		return o.SyncResource(ctx, res)
	case types.ChangeExternalDeleted:
		res, err := o.resourceForEvent(event)
		if err != nil {
			return err
		}
		if err := o.RemoveResource(ctx, res); err != nil {
			return err
		}
		return o.store.Uninstall(res.Identity, res.Scope)
	case types.ChangeExternalConflict:
		return fmt.Errorf("%w: conflicting external copies; resolve keep-local or edit the store first", types.ErrConflict)
	case types.ChangeExternalAdded:
		return o.importUnmanaged(ctx, event)
	default:
		return fmt.Errorf("%w: unknown event type %q", types.ErrValidation, event.Type)
	}
}

// importUnmanaged adopts an unmanaged live file as a global resource without
// a source repository.
func (o *Orchestrator) importUnmanaged(ctx context.Context, event *types.ChangeEvent) error {
	id, err := o.identityForPath(event.App, event.Path)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(event.Path)
	if err != nil {
		return err
	}
	res := resfile.BuildResource(id, content)
	res.Apps = map[types.AppType]bool{event.App: true}
	res.Scope = types.GlobalScope()
	res.InstalledAt = o.now()
	if _, err := o.store.InstallGlobal(res); err != nil {
		return err
	}
	return o.SyncResource(ctx, res)
}

// identityForPath reverses ResourcePath: .../<kind-dir>/(ns/)?name.md.
func (o *Orchestrator) identityForPath(app types.AppType, path string) (types.Identity, error) {
	for _, kind := range types.AllKinds {
		dir := o.dirs.ResourceDir(app, kind)
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), ".md")
		return types.ParseIdentity(kind, rel), nil
	}
	return types.Identity{}, fmt.Errorf("%w: %s is not under a managed directory", types.ErrValidation, path)
}

// resourceForEvent finds the stored copy an event refers to by matching the
// event path against each copy's targets.
func (o *Orchestrator) resourceForEvent(event *types.ChangeEvent) (*types.Resource, error) {
	if event.ResourceID == "" {
		return nil, fmt.Errorf("%w: event %s has no resource", types.ErrValidation, event.ID)
	}
	id, err := o.identityForEventPath(event)
	if err != nil {
		return nil, err
	}
	copies, err := o.store.ResourceCopies(id)
	if err != nil {
		return nil, err
	}
	for _, res := range copies {
		for _, target := range o.targets(res) {
			if target == event.Path {
				return res, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no stored copy matches %s", types.ErrNotFound, event.Path)
}

func (o *Orchestrator) identityForEventPath(event *types.ChangeEvent) (types.Identity, error) {
	if id, err := o.identityForPath(event.App, event.Path); err == nil {
		return id, nil
	}
	// Project-scope paths live under <project>/.claude/<kind-dir>/.
	for _, kind := range types.AllKinds {
		marker := string(filepath.Separator) + paths.ProjectMarker + string(filepath.Separator) + kind.Dir() + string(filepath.Separator)
		if i := strings.Index(event.Path, marker); i >= 0 {
			rel := strings.TrimSuffix(filepath.ToSlash(event.Path[i+len(marker):]), ".md")
			return types.ParseIdentity(kind, rel), nil
		}
	}
	return types.Identity{}, fmt.Errorf("%w: cannot derive resource identity from %s", types.ErrValidation, event.Path)
}
