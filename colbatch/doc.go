// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package colbatch provides the type system and schema shared by colbatch's
column-oriented record batches.

A batch is made of a Schema, an ordered list of Fields, and one column per
field. Columns are built with the array package and serialized to a
self-describing byte stream by the ipc package, optionally compressing each
batch with one of the codecs of the compress package.

# Basics

Columns hold fixed-width values (signed and unsigned integers, floating point
numbers) or variable-length values (UTF-8 strings and opaque binary). A column
carries an optional validity bitmap marking null slots. Variable-length
columns store an offsets buffer of N+1 uint32 values delimiting each value in
a single contiguous data buffer.

# Reference Counting

The array and memory packages use reference counting to release buffers back
to their allocator. Retain and Release are safe to call from multiple
goroutines; once the count drops to zero the object must not be used again.
*/
package colbatch
