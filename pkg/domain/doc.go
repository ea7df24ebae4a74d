/*
Package domain contains the core domain models of the Lattice engine.

It defines the data that flows in and out of a machine group: definitions loaded from
documents or built in code, the messages dispatched to a group, the vector of current
state paths and the change-set produced by every dispatch. The package is kept pure and
free of I/O so that adapters, stores and transports can share it.

# Key Entities

  - GroupDefinition / MachineDefinition / StateDefinition: the declarative chart.
  - Message: a kind plus free-form context. The empty kind is reserved for epsilon moves.
  - Vector: machine name to current state path, for every live machine.
  - ChangeSet: the observable result of one dispatch (silent machines filtered out).
  - Snapshot: a persisted vector for a session.
  - Notification: the row type of the notification visibility query.
*/
package domain
