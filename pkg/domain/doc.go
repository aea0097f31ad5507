/*
Package domain contains the core domain models of the chatflow editor and preview engine.

It defines the fundamental entities of a conversational flow graph and of a preview run.
This package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Node: A single conversational step (start, message, input, question, condition, action).
  - Connection: A directed edge between two nodes. Several connections sharing a source express branching.
  - Graph: The ordered aggregate of nodes and connections, handed around by value.
  - Event: One entry of the transcript produced by walking a graph.
*/
package domain
