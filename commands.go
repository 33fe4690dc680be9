package inspector

// Commands buffers structural changes to the store. They are applied by
// App.FlushCommands, which the App calls between stages.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompRemoval{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, pendingRemoval{eid: entityId})
}

// RemoveEntityTree removes the entity and everything parented below it.
// Descendants are collected at flush time.
func (cmd *Commands) RemoveEntityTree(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, pendingRemoval{eid: entityId, recursive: true})
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	return cmd.app.ecs.componentsOf(entityId)
}

// Store exposes the live store for read-only helpers such as WorldPose.
func (cmd *Commands) Store() *Ecs {
	return cmd.app.ecs
}
